package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/lborres/kontak/core"
)

const minSecretLen = 32

// Server holds CLI flags for the HTTP server and session handling
type Server struct {
	addr          string
	frontendURL   string
	secret        string
	sessionMaxAge time.Duration
	sweepInterval time.Duration
	configPath    string
	accessLog     bool
}

func (x *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("KONTAK_ADDR"),
			Destination: &x.addr,
		},
		&cli.StringFlag{
			Name:        "frontend-url",
			Usage:       "Comma-separated allowed origins; the first one receives the browser after Microsoft sign-in",
			Sources:     cli.EnvVars("FRONTEND_URL"),
			Destination: &x.frontendURL,
		},
		&cli.StringFlag{
			Name:        "session-secret",
			Usage:       "Secret signing session tokens (at least 32 characters)",
			Category:    "Session",
			Sources:     cli.EnvVars("SESSION_SECRET", "JWT_SECRET"),
			Destination: &x.secret,
		},
		&cli.DurationFlag{
			Name:        "session-max-age",
			Usage:       "Session lifetime",
			Value:       24 * time.Hour,
			Category:    "Session",
			Sources:     cli.EnvVars("SESSION_MAX_AGE"),
			Destination: &x.sessionMaxAge,
		},
		&cli.DurationFlag{
			Name:        "session-sweep-interval",
			Usage:       "How often expired sessions are deleted",
			Value:       time.Hour,
			Category:    "Session",
			Sources:     cli.EnvVars("KONTAK_SESSION_SWEEP_INTERVAL"),
			Destination: &x.sweepInterval,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to a TOML configuration file",
			Sources:     cli.EnvVars("KONTAK_CONFIG"),
			Destination: &x.configPath,
		},
		&cli.BoolFlag{
			Name:        "access-log",
			Usage:       "Write an HTTP access log",
			Value:       true,
			Sources:     cli.EnvVars("KONTAK_ACCESS_LOG"),
			Destination: &x.accessLog,
		},
	}
}

func (x *Server) Addr() string              { return x.addr }
func (x *Server) ConfigPath() string        { return x.configPath }
func (x *Server) AccessLog() bool           { return x.accessLog }
func (x *Server) Secret() string            { return x.secret }
func (x *Server) SweepEvery() time.Duration { return x.sweepInterval }

// Origins splits the frontend origins. None configured allows any origin.
func (x *Server) Origins() []string {
	var out []string
	for _, o := range strings.Split(x.frontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, strings.TrimRight(o, "/"))
		}
	}
	return out
}

// FrontendURL is the post-login redirect target.
func (x *Server) FrontendURL() string {
	origins := x.Origins()
	if len(origins) == 0 || origins[0] == "*" {
		return ""
	}
	return origins[0]
}

// SessionConfig returns the session settings. The file max age applies
// only when neither the flag nor its env var was set.
func (x *Server) SessionConfig(c *cli.Command, f *File) (core.SessionConfig, error) {
	cfg := core.DefaultSessionConfig()
	cfg.MaxAge = x.sessionMaxAge

	if f != nil && !c.IsSet("session-max-age") {
		maxAge, err := f.Session.maxAge()
		if err != nil {
			return cfg, goerr.Wrap(err, "invalid session max age")
		}
		if maxAge > 0 {
			cfg.MaxAge = maxAge
		}
	}

	if cfg.MaxAge <= 0 {
		return cfg, goerr.New("session max age must be positive", goerr.V("max_age", cfg.MaxAge))
	}
	return cfg, nil
}

// Validate fails early on a missing or short secret.
func (x *Server) Validate() error {
	switch {
	case x.secret == "":
		return goerr.Wrap(core.ErrSecretRequired, "set --session-secret or SESSION_SECRET")
	case len(x.secret) < minSecretLen:
		return goerr.Wrap(core.ErrSecretTooShort, "session secret is too short", goerr.V("min", minSecretLen))
	}
	return nil
}

func (x Server) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", x.addr),
		slog.Any("origins", x.Origins()),
		slog.Duration("session_max_age", x.sessionMaxAge),
		slog.String("config", x.configPath),
		slog.Bool("secret_set", x.secret != ""),
	)
}
