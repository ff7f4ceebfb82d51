// Package cli is the kontak command line: serve the API or migrate the schema.
package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/lborres/kontak/pkg/cli/config"
	"github.com/lborres/kontak/pkg/logging"
)

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger

	app := &cli.Command{
		Name:    "kontak",
		Usage:   "CRM backend with Microsoft 365 document filing and mail",
		Version: version,
		Flags:   loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}

			logger.Debug("logger configured", "logger", loggerCfg)
			return logging.With(ctx, logger), nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
