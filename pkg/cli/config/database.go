package config

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	pgadapter "github.com/lborres/kontak/adapters/pgx"
)

// Database holds CLI flags for the Postgres connection
type Database struct {
	url      string
	maxConns int
}

func (x *Database) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "Postgres connection string",
			Category:    "Database",
			Sources:     cli.EnvVars("DATABASE_URL"),
			Destination: &x.url,
		},
		&cli.IntFlag{
			Name:        "database-max-conns",
			Usage:       "Maximum pool connections (0 keeps the driver default)",
			Category:    "Database",
			Sources:     cli.EnvVars("KONTAK_DATABASE_MAX_CONNS"),
			Destination: &x.maxConns,
		},
	}
}

// Connect opens the pool. The caller closes it.
func (x *Database) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	if x.url == "" {
		return nil, goerr.New("database url is required, set --database-url or DATABASE_URL")
	}
	return pgadapter.Connect(ctx, x.url, pgadapter.PoolConfig{
		MaxConns:       int32(x.maxConns),
		ConnectTimeout: 10 * time.Second,
	})
}

// LogValue never prints the password.
func (x Database) LogValue() slog.Value {
	u, err := url.Parse(x.url)
	if err != nil || u.Host == "" {
		return slog.GroupValue(slog.Bool("url_set", x.url != ""))
	}
	return slog.GroupValue(
		slog.String("host", u.Host),
		slog.String("database", u.Path),
	)
}
