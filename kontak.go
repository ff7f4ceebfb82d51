package kontak

import (
	"fmt"
	"time"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/cache"
	"github.com/lborres/kontak/pkg/crypto"
	"github.com/lborres/kontak/services"
)

// interfaces
type (
	Storage            = core.Storage
	SessionCache       = core.SessionCache
	GraphClient        = core.GraphClient
	MicrosoftAuthority = core.MicrosoftAuthority
	SessionStore       = core.MicrosoftSessionStore

	PasswordHandler = crypto.PasswordHandler
)

// HTTPAdapter mounts the endpoint catalog on an HTTP framework.
type HTTPAdapter interface {
	RegisterRoutes(k *Kontak) error
}

// structs
type (
	SessionConfig   = core.SessionConfig
	CacheConfig     = core.CacheConfig
	MicrosoftConfig = core.MicrosoftConfig
)

type (
	User        = core.User
	Session     = core.Session
	SessionData = core.SessionData
	CacheStats  = core.CacheStats
	Endpoint    = core.Endpoint
)

const (
	defaultBasePath  = "/api"
	defaultSecretLen = 32
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2            = crypto.NewArgon2
	DefaultSessionConfig = core.DefaultSessionConfig
)

var (
	ErrUserExists         = core.ErrUserExists
	ErrUserNotFound       = core.ErrUserNotFound
	ErrInvalidCredentials = core.ErrInvalidCredentials
)

var (
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrInvalidToken      = core.ErrInvalidToken
	ErrSessionNotFound   = core.ErrSessionNotFound
	ErrSessionExpired    = core.ErrSessionExpired
	ErrReauthRequired    = core.ErrReauthRequired
)

var (
	ErrDBAdapterRequired   = core.ErrDBAdapterRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
	ErrMicrosoftConfig     = core.ErrMicrosoftConfig
)

type Config struct {
	Secret   string
	Database Storage
	HTTP     HTTPAdapter

	// Microsoft integration
	Microsoft    MicrosoftConfig
	Graph        GraphClient
	Authority    MicrosoftAuthority
	SessionStore SessionStore // defaults to an in-memory store bounded by Microsoft.SessionTTL

	SessionConfig  *SessionConfig
	CacheConfig    *CacheConfig
	CacheAdapter   SessionCache
	DisableCache   bool
	PasswordHasher PasswordHandler

	BasePath string

	// FrontendURL receives the browser after a Microsoft sign-in.
	FrontendURL string
}

// Kontak holds the wired services the HTTP adapter serves.
type Kontak struct {
	Auth      *services.AuthService
	Sessions  *services.SessionManager
	Microsoft *services.MicrosoftSessionManager
	Documents *services.DocumentFiling
	Mail      *services.EmailRelay
	CRM       *services.CRMService
	Endpoints *services.EndpointRegistry

	BasePath    string
	FrontendURL string
}

func New(config Config) (*Kontak, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Database == nil {
		return nil, ErrDBAdapterRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}
	if config.Graph == nil || config.Authority == nil {
		return nil, fmt.Errorf("%w: graph client and authority are required", ErrMicrosoftConfig)
	}

	msConfig := config.Microsoft.WithDefaults()

	// Set Defaults

	cacheAdapter := config.CacheAdapter
	if cacheAdapter == nil && !config.DisableCache {
		cacheConfig := CacheConfig{TTL: 5 * time.Minute, MaxSize: 500}
		if config.CacheConfig != nil {
			cacheConfig = *config.CacheConfig
		}
		cacheAdapter = cache.NewSessionCache(cacheConfig)
	}

	sessionConfig := DefaultSessionConfig()
	if config.SessionConfig != nil {
		sessionConfig = *config.SessionConfig
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	sessionStore := config.SessionStore
	if sessionStore == nil {
		sessionStore = cache.NewMemory[*core.MicrosoftAccount](CacheConfig{TTL: msConfig.SessionTTL, MaxSize: 1000})
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	sessionManager := services.NewSessionManager(sessionConfig, config.Secret, config.Database, cacheAdapter)

	microsoft, err := services.NewMicrosoftSessionManager(msConfig, config.Authority, config.Graph, sessionStore)
	if err != nil {
		return nil, err
	}

	k := &Kontak{
		Auth:        services.NewAuthService(config.Database, sessionManager, passwordHasher),
		Sessions:    sessionManager,
		Microsoft:   microsoft,
		Documents:   services.NewDocumentFiling(msConfig, config.Graph, config.Database),
		Mail:        services.NewEmailRelay(msConfig, config.Graph, config.Database, config.Database),
		CRM:         services.NewCRMService(config.Database),
		Endpoints:   services.NewEndpointRegistry(),
		BasePath:    basePath,
		FrontendURL: config.FrontendURL,
	}

	if err := config.HTTP.RegisterRoutes(k); err != nil {
		return nil, err
	}

	return k, nil
}
