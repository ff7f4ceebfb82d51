package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/crypto"
	"github.com/lborres/kontak/pkg/logging"
)

// SessionManager issues signed session credentials and tracks them in
// storage by hash, so a signed but revoked credential is still rejected.
type SessionManager struct {
	config  core.SessionConfig
	storage core.SessionStorage
	cache   core.SessionCache // optional, can be nil if caching is disabled
	signer  *crypto.JWTSigner
	nanoid  *crypto.NanoIDGenerator
	now     func() time.Time
}

func NewSessionManager(config core.SessionConfig, secret string, storage core.SessionStorage, cache core.SessionCache) *SessionManager {
	nanoid, _ := crypto.NewNanoID()
	if config.Issuer == "" {
		config.Issuer = core.DefaultSessionConfig().Issuer
	}
	return &SessionManager{
		config:  config,
		storage: storage,
		cache:   cache,
		signer:  crypto.NewJWTSigner(secret, config.Issuer),
		nanoid:  nanoid,
		now:     time.Now,
	}
}

func (sm *SessionManager) Create(ctx context.Context, userID, ip, userAgent string) (*core.CreateSessionResult, error) {
	sessionID, err := sm.nanoid.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := sm.now()
	expiresAt := now.Add(sm.config.MaxAge)

	token, err := sm.signer.Sign(userID, sessionID, expiresAt)
	if err != nil {
		return nil, err
	}
	tokenHash := crypto.HashToken(token)

	session := &core.Session{
		ID:        sessionID,
		UserID:    userID,
		TokenHash: tokenHash,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: expiresAt,
	}

	if err := sm.storage.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	if sm.cache != nil {
		// We don't fail the request if caching fails
		_ = sm.cache.Set(tokenHash, session)
	}

	return &core.CreateSessionResult{Session: session, Token: token}, nil
}

func (sm *SessionManager) Verify(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	claims, err := sm.signer.Parse(token)
	if err != nil {
		if errors.Is(err, crypto.ErrTokenExpired) {
			return nil, core.ErrSessionExpired
		}
		return nil, core.ErrInvalidToken
	}

	tokenHash := crypto.HashToken(token)

	if sm.cache != nil {
		if session, err := sm.cache.Get(tokenHash); err == nil {
			if sm.now().After(session.ExpiresAt) {
				_ = sm.cache.Delete(tokenHash)
				return nil, core.ErrSessionExpired
			}
			return session, nil
		}
		// Cache miss - fall through to storage
	}

	session, err := sm.storage.GetSessionByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, core.ErrSessionNotFound
	}

	// The credential must describe the stored session, not just any signed one.
	if session.ID != claims.ID || session.UserID != claims.UserID {
		return nil, core.ErrInvalidToken
	}

	if sm.now().After(session.ExpiresAt) {
		return nil, core.ErrSessionExpired
	}

	if sm.cache != nil {
		_ = sm.cache.Set(tokenHash, session)
	}

	return session, nil
}

func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return core.ErrInvalidToken
	}

	tokenHash := crypto.HashToken(token)

	if err := sm.storage.DeleteSessionByHash(ctx, tokenHash); err != nil {
		return err
	}

	if sm.cache != nil {
		_ = sm.cache.Delete(tokenHash)
	}

	return nil
}

// DestroyAllUserSessions deletes every session of userID and evicts them
// from the cache.
func (sm *SessionManager) DestroyAllUserSessions(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, core.ErrUserNotFound
	}

	// Listed first; the token hashes are gone once the rows are deleted.
	var cached []*core.Session
	if sm.cache != nil {
		sessions, err := sm.storage.GetUserSessions(ctx, userID)
		if err != nil {
			return 0, err
		}
		cached = sessions
	}

	count, err := sm.storage.DeleteUserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	for _, s := range cached {
		_ = sm.cache.Delete(s.TokenHash)
	}

	return count, nil
}

// Sweep deletes expired sessions until ctx is done.
func (sm *SessionManager) Sweep(ctx context.Context, every time.Duration) error {
	logger := logging.From(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := sm.storage.DeleteExpiredSessions(ctx, sm.now())
			if err != nil {
				logger.Warn("failed to delete expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("deleted expired sessions", "count", n)
			}
		}
	}
}
