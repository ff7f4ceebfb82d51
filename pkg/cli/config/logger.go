package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/lborres/kontak/pkg/logging"
)

// Logger holds CLI flags for the process logger
type Logger struct {
	level  string
	format string
}

func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Category:    "Logging",
			Sources:     cli.EnvVars("KONTAK_LOG_LEVEL"),
			Destination: &x.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Category:    "Logging",
			Sources:     cli.EnvVars("KONTAK_LOG_FORMAT"),
			Destination: &x.format,
		},
	}
}

// Configure builds the logger and installs it as the default.
func (x *Logger) Configure() (*slog.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level:  x.level,
		Format: logging.Format(x.format),
	})
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logger)
	return logger, nil
}

func (x Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", x.level),
		slog.String("format", x.format),
	)
}
