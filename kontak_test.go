package kontak

import (
	"errors"
	"strings"
	"testing"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/services"
)

// dummyHTTP records the Kontak it was asked to mount.
type dummyHTTP struct {
	registered *Kontak
	err        error
}

func (d *dummyHTTP) RegisterRoutes(k *Kontak) error {
	d.registered = k
	return d.err
}

func validConfig() Config {
	return Config{
		Secret:    strings.Repeat("k", 32),
		Database:  services.NewFakeStorageProvider(),
		HTTP:      &dummyHTTP{},
		Graph:     services.NewFakeGraph("Sales Team"),
		Authority: services.NewFakeAuthority(),
		Microsoft: MicrosoftConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			TenantID:     "tenant-id",
			RedirectURI:  "http://localhost:8080/api/auth/microsoft/callback",
			TeamName:     "Sales Team",
		},
	}
}

func TestNewShouldReturnErrSecretTooShort(t *testing.T) {
	// Arrange
	cfg := validConfig()
	cfg.Secret = "too-short"

	// Act
	_, err := New(cfg)

	// Assert
	if !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected ErrSecretTooShort, got %v", err)
	}
	if !strings.Contains(err.Error(), "32") {
		t.Errorf("expected error to name the minimum length, got %q", err.Error())
	}
}

func TestNewShouldRejectIncompleteConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "missing secret", mutate: func(c *Config) { c.Secret = "" }, wantErr: ErrSecretRequired},
		{name: "missing database", mutate: func(c *Config) { c.Database = nil }, wantErr: ErrDBAdapterRequired},
		{name: "missing http adapter", mutate: func(c *Config) { c.HTTP = nil }, wantErr: ErrHTTPAdapterRequired},
		{name: "missing graph client", mutate: func(c *Config) { c.Graph = nil }, wantErr: ErrMicrosoftConfig},
		{name: "missing authority", mutate: func(c *Config) { c.Authority = nil }, wantErr: ErrMicrosoftConfig},
		{name: "missing team name", mutate: func(c *Config) { c.Microsoft.TeamName = "" }, wantErr: ErrMicrosoftConfig},
		{name: "missing client secret", mutate: func(c *Config) { c.Microsoft.ClientSecret = "" }, wantErr: ErrMicrosoftConfig},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			cfg := validConfig()
			test.mutate(&cfg)

			// Act
			k, err := New(cfg)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
			if k != nil {
				t.Errorf("expected nil instance on error")
			}
		})
	}
}

func TestNewShouldRegisterRoutes(t *testing.T) {
	// Arrange
	cfg := validConfig()
	http := &dummyHTTP{}
	cfg.HTTP = http

	// Act
	k, err := New(cfg)

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if http.registered != k {
		t.Fatalf("expected the adapter to receive the new instance")
	}
	if k.BasePath != "/api" {
		t.Errorf("expected default base path /api, got %q", k.BasePath)
	}
	if len(k.Endpoints.Endpoints()) == 0 {
		t.Errorf("expected the endpoint catalog to be populated")
	}
	for _, svc := range []any{k.Auth, k.Sessions, k.Microsoft, k.Documents, k.Mail, k.CRM} {
		if svc == nil {
			t.Fatalf("expected every service to be wired")
		}
	}
}

func TestNewShouldPropagateRegisterRoutesError(t *testing.T) {
	// Arrange
	cfg := validConfig()
	wantErr := errors.New("route conflict")
	cfg.HTTP = &dummyHTTP{err: wantErr}

	// Act
	_, err := New(cfg)

	// Assert
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestNewShouldNotUseCacheWhenDisableCacheTrue(t *testing.T) {
	// Arrange
	cfg := validConfig()
	cfg.DisableCache = true
	cfg.BasePath = "/v1"

	// Act
	k, err := New(cfg)

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.BasePath != "/v1" {
		t.Errorf("expected base path /v1, got %q", k.BasePath)
	}

	// Sessions still verify against storage with no cache.
	result, err := k.Auth.SignUp(t.Context(), core.SignUpInput{Email: "a@example.com", Password: "password123"}, "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := k.Auth.GetSession(t.Context(), result.Token); err != nil {
		t.Fatalf("expected session to verify without cache, got %v", err)
	}
}
