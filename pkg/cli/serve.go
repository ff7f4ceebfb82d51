package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/lborres/kontak"
	fiberadapter "github.com/lborres/kontak/adapters/fiber"
	"github.com/lborres/kontak/adapters/graph"
	"github.com/lborres/kontak/adapters/oauth"
	pgadapter "github.com/lborres/kontak/adapters/pgx"
	"github.com/lborres/kontak/pkg/cli/config"
	"github.com/lborres/kontak/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func cmdServe() *cli.Command {
	var serverCfg config.Server
	var dbCfg config.Database
	var msCfg config.Microsoft

	flags := serverCfg.Flags()
	flags = append(flags, dbCfg.Flags()...)
	flags = append(flags, msCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			if err := serverCfg.Validate(); err != nil {
				return err
			}
			file, err := config.LoadFile(serverCfg.ConfigPath())
			if err != nil {
				return err
			}
			microsoft, err := msCfg.Configure(file)
			if err != nil {
				return goerr.Wrap(err, "failed to configure microsoft integration")
			}
			sessionCfg, err := serverCfg.SessionConfig(c, file)
			if err != nil {
				return err
			}

			logger.Info("serve configuration",
				"server", serverCfg,
				"database", dbCfg,
				"microsoft", msCfg,
			)

			pool, err := dbCfg.Connect(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to connect database")
			}
			defer pool.Close()

			authority, err := oauth.New(microsoft)
			if err != nil {
				return goerr.Wrap(err, "failed to configure microsoft authority")
			}

			app := fiberadapter.NewApp(fiberadapter.AppConfig{
				AllowOrigins: serverCfg.Origins(),
				Logger:       logger,
				AccessLog:    serverCfg.AccessLog(),
			})

			k, err := kontak.New(kontak.Config{
				Secret:        serverCfg.Secret(),
				Database:      pgadapter.New(pool),
				HTTP:          fiberadapter.New(app),
				Microsoft:     microsoft,
				Graph:         graph.New(),
				Authority:     authority,
				SessionConfig: &sessionCfg,
				FrontendURL:   serverCfg.FrontendURL(),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to create kontak instance")
			}

			return serve(ctx, app, k, serverCfg.Addr(), serverCfg.SweepEvery())
		},
	}
}

// serve runs the HTTP server and the expired-session sweeper until a
// signal arrives or either fails, then shuts the server down.
func serve(ctx context.Context, app *fiber.App, k *kontak.Kontak, addr string, sweepEvery time.Duration) error {
	logger := logging.From(ctx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", addr)
		if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			return goerr.Wrap(err, "http server failed", goerr.V("addr", addr))
		}
		return nil
	})

	g.Go(func() error {
		return k.Sessions.Sweep(ctx, sweepEvery)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return goerr.Wrap(err, "failed to shut down http server")
		}
		return nil
	})

	return g.Wait()
}
