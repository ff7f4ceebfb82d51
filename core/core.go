package core

import (
	"fmt"
	"time"
)

type SessionConfig struct {
	MaxAge time.Duration
	Issuer string
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{MaxAge: 24 * time.Hour, Issuer: "kontak"}
}

// DefaultMicrosoftScopes are the delegated permissions requested at sign-in.
var DefaultMicrosoftScopes = []string{
	"Mail.Send",
	"Mail.Read",
	"Files.ReadWrite.All",
	"Sites.ReadWrite.All",
	"Team.ReadBasic.All",
	"User.Read",
	"offline_access",
}

const (
	DefaultFolderRoot     = "General"
	DefaultSearchPageSize = 25
	DefaultMailPageSize   = 10
	MaxMailPageSize       = 50
)

type MicrosoftConfig struct {
	ClientID     string
	ClientSecret string `masq:"secret"`
	TenantID     string
	RedirectURI  string
	Scopes       []string

	// TeamName is the team whose document library holds contact folders.
	// TeamAlias is the one other spelling accepted when resolving it.
	TeamName  string
	TeamAlias string

	FolderRoot     string
	SearchPageSize int
	MailPageSize   int

	// SessionTTL bounds how long a cached Microsoft session is kept.
	SessionTTL time.Duration
}

// Validate fails on anything that would make every Microsoft call fail later.
func (c *MicrosoftConfig) Validate() error {
	missing := func(name string) error {
		return fmt.Errorf("%w: %s is required", ErrMicrosoftConfig, name)
	}
	switch {
	case c.ClientID == "":
		return missing("client id")
	case c.ClientSecret == "":
		return missing("client secret")
	case c.TenantID == "":
		return missing("tenant id")
	case c.RedirectURI == "":
		return missing("redirect uri")
	case c.TeamName == "":
		return missing("team name")
	}
	return nil
}

// WithDefaults returns a copy with unset optional fields filled in.
func (c MicrosoftConfig) WithDefaults() MicrosoftConfig {
	if len(c.Scopes) == 0 {
		c.Scopes = append([]string(nil), DefaultMicrosoftScopes...)
	}
	if c.FolderRoot == "" {
		c.FolderRoot = DefaultFolderRoot
	}
	if c.SearchPageSize <= 0 {
		c.SearchPageSize = DefaultSearchPageSize
	}
	if c.MailPageSize <= 0 {
		c.MailPageSize = DefaultMailPageSize
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 24 * time.Hour
	}
	return c
}
