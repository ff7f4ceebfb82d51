package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/crypto"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

// fastHasher keeps argon2 cheap in tests.
func fastHasher() *crypto.Argon2 {
	h := crypto.NewArgon2()
	h.Memory = 1024
	h.Iterations = 1
	h.Parallelism = 1
	return h
}

func newTestAuthService(storage *FakeStorageProvider) *AuthService {
	sm := NewSessionManager(core.SessionConfig{MaxAge: 24 * time.Hour}, testSecret, storage, nil)
	return NewAuthService(storage, sm, fastHasher())
}

// Requirement: SignUp creates a new user account and returns a result with user and session.
func TestAuthService_SignUp(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		setup    func(*FakeStorageProvider) // optional setup before SignUp
		wantErr  error
		wantRows int
	}{
		{
			name:     "creates user and session for valid input",
			email:    "alice@example.com",
			password: "secret123",
			wantRows: 1,
		},
		{
			name:     "normalizes email before storing",
			email:    "  Alice@Example.COM ",
			password: "secret123",
			wantRows: 1,
		},
		{
			name:     "returns error for empty email",
			email:    "",
			password: "secret123",
			wantErr:  core.ErrEmailRequired,
		},
		{
			name:     "returns error for malformed email",
			email:    "not-an-email",
			password: "secret123",
			wantErr:  core.ErrInvalidEmail,
		},
		{
			name:     "returns error for empty password",
			email:    "alice@example.com",
			password: "",
			wantErr:  core.ErrPasswordRequired,
		},
		{
			name:     "returns error for short password",
			email:    "alice@example.com",
			password: "short",
			wantErr:  core.ErrPasswordTooShort,
		},
		{
			name:     "returns duplicate error and keeps one row",
			email:    "alice@example.com",
			password: "secret123",
			setup: func(storage *FakeStorageProvider) {
				_ = storage.CreateUser(context.Background(), &core.User{ID: "existing-user", Email: "alice@example.com"})
			},
			wantErr:  core.ErrUserExists,
			wantRows: 1,
		},
		{
			name:     "maps unique index violation to duplicate error",
			email:    "alice@example.com",
			password: "secret123",
			setup: func(storage *FakeStorageProvider) {
				storage.createUserErr = core.ErrUserExists
			},
			wantErr: core.ErrUserExists,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorageProvider()
			if test.setup != nil {
				test.setup(storage)
			}
			service := newTestAuthService(storage)

			// Act
			result, err := service.SignUp(context.Background(), core.SignUpInput{
				Email:    test.email,
				Password: test.password,
			}, "127.0.0.1", "test-agent")

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("SignUp() error = %v, want %v", err, test.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("SignUp() unexpected error: %v", err)
				}
				if result.User == nil || result.Token == "" || result.Session == nil {
					t.Fatal("SignUp() should return user, session and token")
				}
				if result.User.Email != "alice@example.com" {
					t.Errorf("SignUp() email = %q, want normalized address", result.User.Email)
				}
				if result.User.PasswordHash == nil || *result.User.PasswordHash == "secret123" {
					t.Error("SignUp() should store a password hash, not the password")
				}
			}
			if got := storage.UserCount(); got != test.wantRows {
				t.Errorf("user rows = %d, want %d", got, test.wantRows)
			}
		})
	}
}

// Requirement: wrong password and unknown user fail with the same error, so
// callers cannot enumerate accounts.
func TestAuthService_SignIn(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "signs in with valid credentials", email: "alice@example.com", password: "secret123"},
		{name: "accepts differently cased email", email: "ALICE@example.com", password: "secret123"},
		{name: "rejects wrong password", email: "alice@example.com", password: "wrong-password", wantErr: core.ErrInvalidCredentials},
		{name: "rejects unknown user", email: "nobody@example.com", password: "secret123", wantErr: core.ErrInvalidCredentials},
		{name: "rejects microsoft-only user", email: "bob@example.com", password: "secret123", wantErr: core.ErrInvalidCredentials},
		{name: "returns error for empty email", email: "", password: "secret123", wantErr: core.ErrEmailRequired},
		{name: "returns error for empty password", email: "alice@example.com", password: "", wantErr: core.ErrPasswordRequired},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorageProvider()
			service := newTestAuthService(storage)
			registered, err := service.SignUp(context.Background(), core.SignUpInput{
				Email:    "alice@example.com",
				Password: "secret123",
			}, "127.0.0.1", "test-agent")
			if err != nil {
				t.Fatalf("setup SignUp() failed: %v", err)
			}
			_ = storage.CreateUser(context.Background(), &core.User{Email: "bob@example.com"})

			// Act
			result, err := service.SignIn(context.Background(), core.SignInInput{
				Email:    test.email,
				Password: test.password,
			}, "127.0.0.1", "test-agent")

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("SignIn() error = %v, want %v", err, test.wantErr)
				}
				if test.wantErr == core.ErrInvalidCredentials && err.Error() != "invalid email or password" {
					t.Errorf("SignIn() message = %q, want the generic message", err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("SignIn() unexpected error: %v", err)
			}
			if result.User.ID != registered.User.ID {
				t.Errorf("SignIn() user id = %q, want %q", result.User.ID, registered.User.ID)
			}
			if result.User.LastLoginAt == nil {
				t.Error("SignIn() should record last login")
			}
			if result.Token == "" {
				t.Error("SignIn() should return token")
			}
		})
	}
}

// Requirement: SignOut revokes the credential; GetSession then rejects it.
func TestAuthService_SignOut(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	service := newTestAuthService(storage)
	result, err := service.SignUp(context.Background(), core.SignUpInput{Email: "alice@example.com", Password: "secret123"}, "", "")
	if err != nil {
		t.Fatalf("setup SignUp() failed: %v", err)
	}

	// Act
	if err := service.SignOut(context.Background(), result.Token); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	_, err = service.GetSession(context.Background(), result.Token)

	// Assert
	if !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("GetSession() after SignOut error = %v, want %v", err, core.ErrSessionNotFound)
	}
	if err := service.SignOut(context.Background(), result.Token); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("second SignOut() error = %v, want %v", err, core.ErrSessionNotFound)
	}
}

// Requirement: SignOutAll ends every session of the user and leaves other
// users signed in.
func TestAuthService_SignOutAll(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	service := newTestAuthService(storage)
	alice, err := service.SignUp(context.Background(), core.SignUpInput{Email: "alice@example.com", Password: "secret123"}, "", "")
	if err != nil {
		t.Fatalf("setup SignUp() failed: %v", err)
	}
	again, err := service.SignIn(context.Background(), core.SignInInput{Email: "alice@example.com", Password: "secret123"}, "", "")
	if err != nil {
		t.Fatalf("setup SignIn() failed: %v", err)
	}
	bob, err := service.SignUp(context.Background(), core.SignUpInput{Email: "bob@example.com", Password: "secret123"}, "", "")
	if err != nil {
		t.Fatalf("setup SignUp() failed: %v", err)
	}

	// Act
	count, err := service.SignOutAll(context.Background(), alice.User.ID)

	// Assert
	if err != nil {
		t.Fatalf("SignOutAll() error = %v", err)
	}
	if count != 2 {
		t.Errorf("SignOutAll() count = %d, want 2", count)
	}
	for _, token := range []string{alice.Token, again.Token} {
		if _, err := service.GetSession(context.Background(), token); !errors.Is(err, core.ErrSessionNotFound) {
			t.Errorf("GetSession() after SignOutAll error = %v, want %v", err, core.ErrSessionNotFound)
		}
	}
	if _, err := service.GetSession(context.Background(), bob.Token); err != nil {
		t.Errorf("GetSession() for another user error = %v", err)
	}
	if _, err := service.SignOutAll(context.Background(), ""); !errors.Is(err, core.ErrUserNotFound) {
		t.Errorf("SignOutAll(\"\") error = %v, want %v", err, core.ErrUserNotFound)
	}
}

// Requirement: GetSession returns the user and session for a live token.
func TestAuthService_GetSession(t *testing.T) {
	tests := []struct {
		name    string
		token   func(string) string
		wantErr error
	}{
		{name: "returns session for valid token", token: func(tok string) string { return tok }},
		{name: "rejects empty token", token: func(string) string { return "" }, wantErr: core.ErrInvalidToken},
		{name: "rejects tampered token", token: func(tok string) string { return tok + "x" }, wantErr: core.ErrInvalidToken},
		{name: "rejects garbage", token: func(string) string { return "not-a-token" }, wantErr: core.ErrInvalidToken},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorageProvider()
			service := newTestAuthService(storage)
			result, err := service.SignUp(context.Background(), core.SignUpInput{Email: "alice@example.com", Password: "secret123"}, "", "")
			if err != nil {
				t.Fatalf("setup SignUp() failed: %v", err)
			}

			// Act
			data, err := service.GetSession(context.Background(), test.token(result.Token))

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("GetSession() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetSession() unexpected error: %v", err)
			}
			if data.User.ID != result.User.ID || data.Session.ID != result.Session.ID {
				t.Error("GetSession() returned another user or session")
			}
		})
	}
}

// Requirement: Verify answers valid=false for dead tokens instead of failing.
func TestAuthService_Verify(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	service := newTestAuthService(storage)
	result, err := service.SignUp(context.Background(), core.SignUpInput{Email: "alice@example.com", Password: "secret123"}, "", "")
	if err != nil {
		t.Fatalf("setup SignUp() failed: %v", err)
	}

	// Act
	live, err := service.Verify(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	dead, err := service.Verify(context.Background(), "garbage")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	// Assert
	if !live.Valid || live.User == nil {
		t.Error("Verify() should accept a live token")
	}
	if dead.Valid || dead.User != nil {
		t.Error("Verify() should reject garbage without a user")
	}
}

// Requirement: Microsoft sign-in finds the user by Microsoft id, then by
// email, and otherwise creates a password-less user.
func TestAuthService_SignInWithMicrosoft(t *testing.T) {
	login := func(accountID, email string) *core.MicrosoftLogin {
		return &core.MicrosoftLogin{
			AccessToken: "access",
			Account:     &core.MicrosoftAccount{AccountID: accountID, Username: email, Name: "Alice"},
		}
	}

	tests := []struct {
		name      string
		setup     func(*FakeStorageProvider)
		login     *core.MicrosoftLogin
		wantUser  string
		wantRows  int
		wantErr   error
		wantNoPwd bool
	}{
		{
			name: "links existing user by email",
			setup: func(s *FakeStorageProvider) {
				_ = s.CreateUser(context.Background(), &core.User{ID: "user-alice", Email: "alice@example.com"})
			},
			login:    login("ms-alice", "Alice@Example.com"),
			wantUser: "user-alice",
			wantRows: 1,
		},
		{
			name: "prefers the microsoft id over the email",
			setup: func(s *FakeStorageProvider) {
				msID := "ms-alice"
				_ = s.CreateUser(context.Background(), &core.User{ID: "user-linked", Email: "old@example.com", MicrosoftID: &msID})
				_ = s.CreateUser(context.Background(), &core.User{ID: "user-other", Email: "alice@example.com"})
			},
			login:    login("ms-alice", "alice@example.com"),
			wantUser: "user-linked",
			wantRows: 2,
		},
		{
			name:      "creates a password-less user",
			login:     login("ms-new", "new@example.com"),
			wantRows:  1,
			wantNoPwd: true,
		},
		{
			name:    "rejects a login without account",
			login:   &core.MicrosoftLogin{},
			wantErr: core.ErrReauthRequired,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorageProvider()
			if test.setup != nil {
				test.setup(storage)
			}
			service := newTestAuthService(storage)

			// Act
			result, err := service.SignInWithMicrosoft(context.Background(), test.login, "", "")

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("SignInWithMicrosoft() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SignInWithMicrosoft() unexpected error: %v", err)
			}
			if test.wantUser != "" && result.User.ID != test.wantUser {
				t.Errorf("user id = %q, want %q", result.User.ID, test.wantUser)
			}
			if !result.User.HasMicrosoftSession() {
				t.Error("user should carry the microsoft account reference")
			}
			if test.wantNoPwd && result.User.PasswordHash != nil {
				t.Error("created user should have no password")
			}
			if got := storage.UserCount(); got != test.wantRows {
				t.Errorf("user rows = %d, want %d", got, test.wantRows)
			}
			if result.Token == "" {
				t.Error("SignInWithMicrosoft() should return a session token")
			}
		})
	}
}
