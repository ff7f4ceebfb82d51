package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/cache"
)

func testMicrosoftConfig() core.MicrosoftConfig {
	return core.MicrosoftConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TenantID:     "tenant-id",
		RedirectURI:  "http://localhost:8080/api/auth/microsoft/callback",
		TeamName:     "Sales Team",
		TeamAlias:    "Sales team",
	}
}

func newTestMicrosoftManager(t *testing.T, authority *FakeAuthority, graph *FakeGraph) (*MicrosoftSessionManager, *cache.Memory[*core.MicrosoftAccount]) {
	t.Helper()
	store := cache.NewMemory[*core.MicrosoftAccount](core.CacheConfig{TTL: time.Hour, MaxSize: 10})
	m, err := NewMicrosoftSessionManager(testMicrosoftConfig(), authority, graph, store)
	if err != nil {
		t.Fatalf("NewMicrosoftSessionManager() error = %v", err)
	}
	return m, store
}

// Requirement: the manager refuses incomplete configuration up front.
func TestNewMicrosoftSessionManager_Config(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.MicrosoftConfig)
	}{
		{name: "missing client id", mutate: func(c *core.MicrosoftConfig) { c.ClientID = "" }},
		{name: "missing client secret", mutate: func(c *core.MicrosoftConfig) { c.ClientSecret = "" }},
		{name: "missing tenant", mutate: func(c *core.MicrosoftConfig) { c.TenantID = "" }},
		{name: "missing redirect uri", mutate: func(c *core.MicrosoftConfig) { c.RedirectURI = "" }},
		{name: "missing team name", mutate: func(c *core.MicrosoftConfig) { c.TeamName = "" }},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			cfg := testMicrosoftConfig()
			test.mutate(&cfg)
			store := cache.NewMemory[*core.MicrosoftAccount](core.CacheConfig{})

			// Act
			_, err := NewMicrosoftSessionManager(cfg, NewFakeAuthority(), NewFakeGraph("Sales Team"), store)

			// Assert
			if !errors.Is(err, core.ErrMicrosoftConfig) {
				t.Errorf("error = %v, want %v", err, core.ErrMicrosoftConfig)
			}
		})
	}
}

// Requirement: AuthURL carries a fresh random state unless one is given.
func TestMicrosoftSessionManager_AuthURL(t *testing.T) {
	// Arrange
	m, _ := newTestMicrosoftManager(t, NewFakeAuthority(), NewFakeGraph("Sales Team"))

	// Act
	first, firstState, err1 := m.AuthURL("")
	_, secondState, err2 := m.AuthURL("")
	_, fixedState, err3 := m.AuthURL("given")

	// Assert
	for _, err := range []error{err1, err2, err3} {
		if err != nil {
			t.Fatalf("AuthURL() error = %v", err)
		}
	}
	if firstState == "" || firstState == secondState {
		t.Errorf("states should be random and distinct, got %q and %q", firstState, secondState)
	}
	u, err := url.Parse(first)
	if err != nil {
		t.Fatalf("AuthURL() returned invalid URL: %v", err)
	}
	if got := u.Query().Get("state"); got != firstState {
		t.Errorf("URL state = %q, want %q", got, firstState)
	}
	if fixedState != "given" {
		t.Errorf("AuthURL(given) state = %q", fixedState)
	}
}

// Requirement: ExchangeCode caches the session under its account handle and
// returns the access token issued for it.
func TestMicrosoftSessionManager_ExchangeCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		setup    func(*FakeAuthority, *FakeGraph)
		wantErr  error
		wantFail bool
	}{
		{name: "caches the session", code: "code-1"},
		{name: "requires a code", code: "", wantErr: core.ErrAuthorizationMissing},
		{
			name:    "passes through an invalid grant",
			code:    "used",
			setup:   func(a *FakeAuthority, _ *FakeGraph) { a.exchangeErr = core.ErrInvalidGrant },
			wantErr: core.ErrInvalidGrant,
		},
		{
			name:     "fails when the profile cannot be read",
			code:     "code-1",
			setup:    func(_ *FakeAuthority, g *FakeGraph) { g.meErr = core.ErrUpstream },
			wantFail: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			authority, graph := NewFakeAuthority(), NewFakeGraph("Sales Team")
			if test.setup != nil {
				test.setup(authority, graph)
			}
			m, store := newTestMicrosoftManager(t, authority, graph)

			// Act
			login, err := m.ExchangeCode(context.Background(), test.code)

			// Assert
			if test.wantErr != nil || test.wantFail {
				if err == nil || (test.wantErr != nil && !errors.Is(err, test.wantErr)) {
					t.Fatalf("ExchangeCode() error = %v, want %v", err, test.wantErr)
				}
				if store.Len() != 0 {
					t.Error("nothing should be cached on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExchangeCode() unexpected error: %v", err)
			}
			if login.Account.AccountID != "ms-alice" || login.Account.Username != "alice@example.com" {
				t.Errorf("account = %#v", login.Account)
			}
			if login.AccessToken != "access-code-1-1" {
				t.Errorf("access token = %q", login.AccessToken)
			}
			token, err := m.AccessToken(context.Background(), "ms-alice", "")
			if err != nil || token != login.AccessToken {
				t.Errorf("AccessToken() = %q, %v; want the exchanged token", token, err)
			}
		})
	}
}

// Requirement: lookups match exactly; an unknown handle never falls back
// to another cached session.
func TestMicrosoftSessionManager_AccessToken_ExactMatch(t *testing.T) {
	tests := []struct {
		name    string
		handle  string
		userID  string
		wantErr error
	}{
		{name: "by account id", handle: "ms-alice"},
		{name: "by username", handle: "alice@example.com"},
		{name: "by username in another case", handle: "ALICE@example.com"},
		{name: "unknown handle", handle: "ms-bob", wantErr: core.ErrReauthRequired},
		{name: "empty handle", handle: "", wantErr: core.ErrReauthRequired},
		{name: "bound to another user", handle: "ms-alice", userID: "user-bob", wantErr: core.ErrReauthRequired},
		{name: "bound to the same user", handle: "ms-alice", userID: "user-alice"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			m, _ := newTestMicrosoftManager(t, NewFakeAuthority(), NewFakeGraph("Sales Team"))
			if _, err := m.ExchangeCode(context.Background(), "code"); err != nil {
				t.Fatalf("setup ExchangeCode() failed: %v", err)
			}
			if err := m.Bind("ms-alice", "user-alice"); err != nil {
				t.Fatalf("setup Bind() failed: %v", err)
			}

			// Act
			token, err := m.AccessToken(context.Background(), test.handle, test.userID)

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) || token != "" {
					t.Fatalf("AccessToken() = %q, %v; want %v", token, err, test.wantErr)
				}
				return
			}
			if err != nil || token == "" {
				t.Fatalf("AccessToken() = %q, %v", token, err)
			}
		})
	}
}

// Requirement: an expired token is refreshed silently; a rejected refresh
// surfaces re-authentication and drops the cached session.
func TestMicrosoftSessionManager_AccessToken_Refresh(t *testing.T) {
	tests := []struct {
		name       string
		refreshErr error
		wantToken  string
		wantErr    error
	}{
		{name: "refreshes an expired token", wantToken: "refreshed-1"},
		{name: "re-auth when refresh is rejected", refreshErr: core.ErrInvalidGrant, wantErr: core.ErrReauthRequired},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			authority := NewFakeAuthority()
			authority.expiresIn = -time.Minute
			authority.refreshErr = test.refreshErr
			m, store := newTestMicrosoftManager(t, authority, NewFakeGraph("Sales Team"))
			if _, err := m.ExchangeCode(context.Background(), "code"); err != nil {
				t.Fatalf("setup ExchangeCode() failed: %v", err)
			}

			// Act
			token, err := m.AccessToken(context.Background(), "ms-alice", "")

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("AccessToken() error = %v, want %v", err, test.wantErr)
				}
				if token != "" {
					t.Errorf("AccessToken() returned %q alongside an error", token)
				}
				if store.Len() != 0 {
					t.Errorf("cached entries = %d, want 0 after rejected refresh", store.Len())
				}
				if _, err := m.AccessToken(context.Background(), "ms-alice", ""); !errors.Is(err, core.ErrReauthRequired) {
					t.Errorf("second AccessToken() error = %v", err)
				}
				return
			}
			if err != nil || token != test.wantToken {
				t.Fatalf("AccessToken() = %q, %v; want %q", token, err, test.wantToken)
			}
			again, _ := m.AccessToken(context.Background(), "alice@example.com", "")
			if again != test.wantToken || authority.Refreshes() != 1 {
				t.Errorf("refreshed token should be cached under both keys, got %q after %d refreshes", again, authority.Refreshes())
			}
		})
	}
}

// Requirement: a refresh that fails for a transient reason is an upstream
// error and keeps the session, so the next call can refresh again.
func TestMicrosoftSessionManager_AccessToken_TransientRefreshFailure(t *testing.T) {
	tests := []struct {
		name       string
		refreshErr error
	}{
		{name: "upstream failure", refreshErr: fmt.Errorf("%w: dial tcp: i/o timeout", core.ErrUpstream)},
		{name: "unclassified failure", refreshErr: errors.New("connection reset by peer")},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			authority := NewFakeAuthority()
			authority.expiresIn = -time.Minute
			m, store := newTestMicrosoftManager(t, authority, NewFakeGraph("Sales Team"))
			if _, err := m.ExchangeCode(context.Background(), "code"); err != nil {
				t.Fatalf("setup ExchangeCode() failed: %v", err)
			}
			authority.FailRefresh(test.refreshErr)

			// Act
			_, failErr := m.AccessToken(context.Background(), "ms-alice", "")
			authority.FailRefresh(nil)
			token, err := m.AccessToken(context.Background(), "ms-alice", "")

			// Assert
			if !errors.Is(failErr, core.ErrUpstream) {
				t.Errorf("AccessToken() error = %v, want ErrUpstream", failErr)
			}
			if errors.Is(failErr, core.ErrReauthRequired) {
				t.Errorf("AccessToken() error = %v, must not require re-authentication", failErr)
			}
			if store.Len() == 0 {
				t.Error("session was dropped after a transient refresh failure")
			}
			if err != nil || token != "refreshed-1" {
				t.Errorf("AccessToken() after recovery = %q, %v; want refreshed-1", token, err)
			}
		})
	}
}

// Requirement: Forget removes the session under both keys.
func TestMicrosoftSessionManager_Forget(t *testing.T) {
	// Arrange
	m, store := newTestMicrosoftManager(t, NewFakeAuthority(), NewFakeGraph("Sales Team"))
	if _, err := m.ExchangeCode(context.Background(), "code"); err != nil {
		t.Fatalf("setup ExchangeCode() failed: %v", err)
	}

	// Act
	err := m.Forget("alice@example.com")

	// Assert
	if err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("cached entries = %d, want 0", store.Len())
	}
	if err := m.Forget("ms-alice"); err != nil {
		t.Errorf("Forget() of a missing session should be a no-op, got %v", err)
	}
}
