package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/crypto"
	"github.com/lborres/kontak/pkg/logging"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

type AuthService struct {
	db             core.AuthStorage
	passwordHasher crypto.PasswordHandler
	sessionManager *SessionManager
	now            func() time.Time
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

func NewAuthService(db core.AuthStorage, sessionManager *SessionManager, passwordHasher crypto.PasswordHandler) *AuthService {
	return &AuthService{
		db:             db,
		passwordHasher: passwordHasher,
		sessionManager: sessionManager,
		now:            time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return core.ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return core.ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case password == "":
		return core.ErrPasswordRequired
	case n < minPasswordLength:
		return fmt.Errorf("%w - minimum of %d characters", core.ErrPasswordTooShort, minPasswordLength)
	case n > maxPasswordLength:
		return fmt.Errorf("%w - maximum of %d characters", core.ErrPasswordTooLong, maxPasswordLength)
	}
	return nil
}

// SignUp registers a new user with email and password
func (s *AuthService) SignUp(ctx context.Context, input core.SignUpInput, ipAddress, userAgent string) (*core.SignUpResult, error) {
	email := normalizeEmail(input.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	// Step 1: Check if user already exists
	existingUser, err := s.db.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, core.ErrUserExists
	}

	// Step 2: Hash the password
	hashedPassword, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Step 3: Create the user. A concurrent sign-up with the same email
	// surfaces as ErrUserExists from the unique index.
	user := &core.User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: &hashedPassword,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, core.ErrUserExists) {
			return nil, core.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Step 4: Create a session for the new user
	sessionResult, err := s.sessionManager.Create(ctx, user.ID, ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logging.From(ctx).Info("user registered", "user_id", user.ID)

	return &core.SignUpResult{
		User:    user,
		Session: sessionResult.Session,
		Token:   sessionResult.Token,
	}, nil
}

// SignIn authenticates a user with email and password.
// Unknown email, missing password and wrong password are indistinguishable.
func (s *AuthService) SignIn(ctx context.Context, input core.SignInInput, ipAddress, userAgent string) (*core.SignInResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, core.ErrEmailRequired
	}
	if input.Password == "" {
		return nil, core.ErrPasswordRequired
	}

	// Step 1: Find the user by email
	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// Step 2: Microsoft-only users have no password to check
	if user.PasswordHash == nil {
		return nil, core.ErrInvalidCredentials
	}

	// Step 3: Verify the password
	valid, err := s.passwordHasher.Verify(input.Password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, core.ErrInvalidCredentials
	}

	return s.startSession(ctx, user, ipAddress, userAgent)
}

func (s *AuthService) startSession(ctx context.Context, user *core.User, ipAddress, userAgent string) (*core.SignInResult, error) {
	now := s.now()
	if err := s.db.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now

	sessionResult, err := s.sessionManager.Create(ctx, user.ID, ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &core.SignInResult{
		User:    user,
		Session: sessionResult.Session,
		Token:   sessionResult.Token,
	}, nil
}

// SignOut invalidates the current session
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if err := s.sessionManager.Destroy(ctx, token); err != nil {
		if errors.Is(err, core.ErrSessionNotFound) || errors.Is(err, core.ErrInvalidToken) {
			return err
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SignOutAll invalidates every session of userID and reports how many
// were removed.
func (s *AuthService) SignOutAll(ctx context.Context, userID string) (int, error) {
	count, err := s.sessionManager.DestroyAllUserSessions(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return count, nil
}

// GetSession retrieves session data by token
func (s *AuthService) GetSession(ctx context.Context, token string) (*core.SessionData, error) {
	session, err := s.sessionManager.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.db.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &core.SessionData{
		User:    user,
		Session: session,
	}, nil
}

// Verify reports whether token is a live credential. Only storage failures
// are returned as errors.
func (s *AuthService) Verify(ctx context.Context, token string) (*core.VerifyResult, error) {
	data, err := s.GetSession(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidToken),
			errors.Is(err, core.ErrSessionExpired),
			errors.Is(err, core.ErrSessionNotFound):
			return &core.VerifyResult{Valid: false}, nil
		}
		return nil, err
	}
	return &core.VerifyResult{Valid: true, User: data.User}, nil
}

// SignInWithMicrosoft resolves the local user for a Microsoft login: by
// Microsoft id first, then by email, creating a password-less user when
// neither exists. The account handle is stored for later token requests.
func (s *AuthService) SignInWithMicrosoft(ctx context.Context, login *core.MicrosoftLogin, ipAddress, userAgent string) (*core.SignInResult, error) {
	if login == nil || login.Account == nil || login.Account.AccountID == "" {
		return nil, core.ErrReauthRequired
	}
	account := login.Account
	email := normalizeEmail(account.Username)
	logger := logging.From(ctx).With("microsoft_account", account.AccountID)

	user, err := s.db.GetUserByMicrosoftID(ctx, account.AccountID)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user by microsoft id: %w", err)
	}

	if user == nil && email != "" {
		user, err = s.db.GetUserByEmail(ctx, email)
		if err != nil && !errors.Is(err, core.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
	}

	if user == nil {
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user = &core.User{Email: email, Name: account.Name}
		if err := s.db.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		logger.Info("user created from microsoft login", "user_id", user.ID)
	}

	profile := &core.MicrosoftProfile{
		ID:          account.AccountID,
		DisplayName: account.Name,
		Mail:        account.Username,
	}
	if err := s.db.LinkMicrosoftAccount(ctx, user.ID, profile, account.AccountID); err != nil {
		return nil, fmt.Errorf("failed to link microsoft account: %w", err)
	}
	user.MicrosoftID = &profile.ID
	user.MicrosoftEmail = &profile.Mail
	user.MicrosoftAccountID = &account.AccountID

	return s.startSession(ctx, user, ipAddress, userAgent)
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*core.User, error) {
	return s.db.GetUserByID(ctx, id)
}
