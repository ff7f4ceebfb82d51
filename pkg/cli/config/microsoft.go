package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/lborres/kontak/core"
)

// Microsoft holds CLI flags for the Microsoft integration
type Microsoft struct {
	clientID     string
	clientSecret string
	tenantID     string
	redirectURI  string
	teamName     string
	teamAlias    string
}

func (x *Microsoft) Flags() []cli.Flag {
	category := "Microsoft"
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "microsoft-client-id",
			Usage:       "Application (client) id of the Entra app registration",
			Category:    category,
			Sources:     cli.EnvVars("MICROSOFT_CLIENT_ID"),
			Destination: &x.clientID,
		},
		&cli.StringFlag{
			Name:        "microsoft-client-secret",
			Usage:       "Client secret of the Entra app registration",
			Category:    category,
			Sources:     cli.EnvVars("MICROSOFT_CLIENT_SECRET"),
			Destination: &x.clientSecret,
		},
		&cli.StringFlag{
			Name:        "microsoft-tenant-id",
			Usage:       "Directory (tenant) id",
			Category:    category,
			Sources:     cli.EnvVars("MICROSOFT_TENANT_ID"),
			Destination: &x.tenantID,
		},
		&cli.StringFlag{
			Name:        "microsoft-redirect-uri",
			Usage:       "Redirect URI registered for the authorization code flow",
			Category:    category,
			Sources:     cli.EnvVars("MICROSOFT_REDIRECT_URI"),
			Destination: &x.redirectURI,
		},
		&cli.StringFlag{
			Name:        "microsoft-team-name",
			Usage:       "Team whose document library holds contact folders",
			Category:    category,
			Sources:     cli.EnvVars("MICROSOFT_TEAM_NAME"),
			Destination: &x.teamName,
		},
		&cli.StringFlag{
			Name:        "microsoft-team-alias",
			Usage:       "Alternative display name accepted for the team",
			Category:    category,
			Sources:     cli.EnvVars("MICROSOFT_TEAM_ALIAS"),
			Destination: &x.teamAlias,
		},
	}
}

// Configure merges flags with the file and validates the result.
func (x *Microsoft) Configure(f *File) (core.MicrosoftConfig, error) {
	cfg := core.MicrosoftConfig{
		ClientID:     x.clientID,
		ClientSecret: x.clientSecret,
		TenantID:     x.tenantID,
		RedirectURI:  x.redirectURI,
		TeamName:     x.teamName,
		TeamAlias:    x.teamAlias,
	}
	if f != nil {
		fm := f.Microsoft
		cfg.TeamName = fallback(cfg.TeamName, fm.TeamName)
		cfg.TeamAlias = fallback(cfg.TeamAlias, fm.TeamAlias)
		cfg.FolderRoot = fm.FolderRoot
		cfg.Scopes = fm.Scopes
		cfg.SearchPageSize = fm.SearchPageSize
		cfg.MailPageSize = fm.MailPageSize
	}

	if err := cfg.Validate(); err != nil {
		return core.MicrosoftConfig{}, err
	}
	return cfg.WithDefaults(), nil
}

func (x Microsoft) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client_id", x.clientID),
		slog.String("tenant_id", x.tenantID),
		slog.String("redirect_uri", x.redirectURI),
		slog.String("team_name", x.teamName),
		slog.Bool("client_secret_set", x.clientSecret != ""),
	)
}

func fallback(v, alt string) string {
	if v != "" {
		return v
	}
	return alt
}
