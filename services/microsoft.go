package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/crypto"
	"github.com/lborres/kontak/pkg/logging"
)

// MicrosoftSessionManager turns an authorization code into a cached
// Microsoft session and hands out access tokens from it.
//
// Sessions are resolved by exact account id or username only. A cached
// session bound to another local user is treated as missing.
type MicrosoftSessionManager struct {
	authority core.MicrosoftAuthority
	directory core.DirectoryClient
	store     core.MicrosoftSessionStore
	nanoid    *crypto.NanoIDGenerator
	now       func() time.Time

	// mu keeps the id and username keys of one account in step.
	mu sync.Mutex
}

var _ core.MicrosoftHandler = (*MicrosoftSessionManager)(nil)

func NewMicrosoftSessionManager(
	cfg core.MicrosoftConfig,
	authority core.MicrosoftAuthority,
	directory core.DirectoryClient,
	store core.MicrosoftSessionStore,
) (*MicrosoftSessionManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if authority == nil || directory == nil || store == nil {
		return nil, goerr.Wrap(core.ErrMicrosoftConfig, "authority, directory and session store are required")
	}

	nanoid, err := crypto.NewNanoID()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create state generator")
	}

	return &MicrosoftSessionManager{
		authority: authority,
		directory: directory,
		store:     store,
		nanoid:    nanoid,
		now:       time.Now,
	}, nil
}

func usernameKey(username string) string {
	return "username:" + strings.ToLower(username)
}

// AuthURL returns the authorization URL and the state it carries.
func (m *MicrosoftSessionManager) AuthURL(state string) (string, string, error) {
	if state == "" {
		generated, err := m.nanoid.State()
		if err != nil {
			return "", "", goerr.Wrap(err, "failed to generate oauth state")
		}
		state = generated
	}
	return m.authority.AuthCodeURL(state), state, nil
}

// ExchangeCode redeems a one-time authorization code and caches the
// resulting session. The returned login carries the cached account handle.
func (m *MicrosoftSessionManager) ExchangeCode(ctx context.Context, code string) (*core.MicrosoftLogin, error) {
	if code == "" {
		return nil, core.ErrAuthorizationMissing
	}

	token, err := m.authority.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := m.directory.Me(ctx, token.AccessToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read microsoft profile")
	}

	account := &core.MicrosoftAccount{
		AccountID: profile.ID,
		Username:  profile.Email(),
		Name:      profile.DisplayName,
		Token:     token,
		CachedAt:  m.now(),
	}
	m.save(account)

	logging.From(ctx).Info("microsoft session cached",
		"account_id", account.AccountID,
		"username", account.Username,
	)

	return &core.MicrosoftLogin{
		AccessToken: token.AccessToken,
		ExpiresOn:   token.Expiry,
		Account:     account,
	}, nil
}

// AccessToken returns a usable access token for the cached session, refreshing
// it when needed. Only a missing session or a refresh the authority rejects
// requires a new sign-in; other refresh failures keep the session cached and
// surface as core.ErrUpstream.
func (m *MicrosoftSessionManager) AccessToken(ctx context.Context, accountHandle, userID string) (string, error) {
	logger := logging.From(ctx).With("account_handle", accountHandle, "user_id", userID)

	account, err := m.lookup(accountHandle)
	if err != nil {
		logger.Info("microsoft session not cached")
		return "", err
	}
	if account.UserID != "" && userID != "" && account.UserID != userID {
		logger.Warn("microsoft session belongs to another user")
		return "", core.ErrReauthRequired
	}

	if account.Token.Valid(m.now()) {
		return account.Token.AccessToken, nil
	}

	token, err := m.authority.Refresh(ctx, account.Token)
	if err != nil {
		if errors.Is(err, core.ErrInvalidGrant) || errors.Is(err, core.ErrReauthRequired) {
			m.forget(account)
			logger.Info("microsoft silent refresh rejected", "error", err)
			return "", fmt.Errorf("%w: %w", core.ErrReauthRequired, err)
		}

		logger.Warn("microsoft silent refresh failed", "error", err)
		if !errors.Is(err, core.ErrUpstream) {
			err = fmt.Errorf("%w: %w", core.ErrUpstream, err)
		}
		return "", goerr.Wrap(err, "failed to refresh microsoft token")
	}

	refreshed := *account
	refreshed.Token = token
	refreshed.CachedAt = m.now()
	m.save(&refreshed)

	return token.AccessToken, nil
}

func (m *MicrosoftSessionManager) Bind(accountHandle, userID string) error {
	account, err := m.lookup(accountHandle)
	if err != nil {
		return err
	}
	bound := *account
	bound.UserID = userID
	m.save(&bound)
	return nil
}

func (m *MicrosoftSessionManager) Forget(accountHandle string) error {
	account, err := m.lookup(accountHandle)
	if err != nil {
		return nil
	}
	m.forget(account)
	return nil
}

func (m *MicrosoftSessionManager) lookup(handle string) (*core.MicrosoftAccount, error) {
	if handle == "" {
		return nil, core.ErrReauthRequired
	}
	if account, err := m.store.Get(handle); err == nil && account != nil {
		return account, nil
	}
	if account, err := m.store.Get(usernameKey(handle)); err == nil && account != nil {
		return account, nil
	}
	return nil, core.ErrReauthRequired
}

func (m *MicrosoftSessionManager) save(account *core.MicrosoftAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.store.Set(account.AccountID, account)
	if account.Username != "" {
		_ = m.store.Set(usernameKey(account.Username), account)
	}
}

func (m *MicrosoftSessionManager) forget(account *core.MicrosoftAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.store.Delete(account.AccountID)
	if account.Username != "" {
		_ = m.store.Delete(usernameKey(account.Username))
	}
}
