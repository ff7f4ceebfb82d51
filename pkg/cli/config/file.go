package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// File is the optional TOML configuration file. Values in it only fill
// settings that no flag or environment variable set.
type File struct {
	Microsoft FileMicrosoft `toml:"microsoft"`
	Session   FileSession   `toml:"session"`
}

type FileMicrosoft struct {
	TeamName       string   `toml:"team_name"`
	TeamAlias      string   `toml:"team_alias"`
	FolderRoot     string   `toml:"folder_root"`
	Scopes         []string `toml:"scopes"`
	SearchPageSize int      `toml:"search_page_size"`
	MailPageSize   int      `toml:"mail_page_size"`
}

type FileSession struct {
	MaxAge string `toml:"max_age"`
}

// LoadFile reads path. An empty path is an empty file.
func LoadFile(path string) (*File, error) {
	var f File
	if path == "" {
		return &f, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}
	if _, err := f.Session.maxAge(); err != nil {
		return nil, goerr.Wrap(err, "invalid session.max_age", goerr.V("path", path))
	}
	return &f, nil
}

func (s FileSession) maxAge() (time.Duration, error) {
	if s.MaxAge == "" {
		return 0, nil
	}
	return time.ParseDuration(s.MaxAge)
}
