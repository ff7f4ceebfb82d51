package fiber

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/logging"
)

const (
	localUser           = "user"
	localSession        = "session"
	localMicrosoftToken = "microsoftToken"

	authCookie = "auth_token"
)

// ProtectedMiddleware validates the session credential and stores the
// user and session in Locals for routes mounted outside the catalog.
func (a *Adapter) ProtectedMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := a.authenticate(c); err != nil {
			return a.fail(c, err)
		}
		return c.Next()
	}
}

// guard wraps h with the checks access requires.
func (a *Adapter) guard(access core.Access, h fiber.Handler) fiber.Handler {
	switch access {
	case core.AccessSession:
		return func(c fiber.Ctx) error {
			if err := a.authenticate(c); err != nil {
				return a.fail(c, err)
			}
			return h(c)
		}
	case core.AccessMicrosoft:
		return func(c fiber.Ctx) error {
			if err := a.authenticate(c); err != nil {
				return a.fail(c, err)
			}
			if err := a.acquireMicrosoftToken(c); err != nil {
				return a.fail(c, err)
			}
			return h(c)
		}
	default:
		return h
	}
}

func (a *Adapter) authenticate(c fiber.Ctx) error {
	token, err := extractToken(c)
	if err != nil {
		return err
	}

	sessionData, err := a.auth.GetSession(c.Context(), token)
	if err != nil {
		return err
	}

	c.Locals(localUser, sessionData.User)
	c.Locals(localSession, sessionData.Session)
	c.SetContext(logging.With(c.Context(), logging.From(c.Context()).With("user_id", sessionData.User.ID)))
	return nil
}

// acquireMicrosoftToken resolves a live Microsoft access token for the
// signed-in user, refreshing it silently when it has expired.
func (a *Adapter) acquireMicrosoftToken(c fiber.Ctx) error {
	user := currentUser(c)
	if user == nil || !user.HasMicrosoftSession() {
		return core.ErrMicrosoftNotLinked
	}

	token, err := a.microsoft.AccessToken(c.Context(), *user.MicrosoftAccountID, user.ID)
	if err != nil {
		return err
	}
	c.Locals(localMicrosoftToken, token)
	return nil
}

// extractToken reads the Bearer credential, falling back to the auth cookie.
func extractToken(c fiber.Ctx) (string, error) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", core.ErrInvalidAuthHeader
		}
		return strings.TrimSpace(token), nil
	}

	if token := c.Cookies(authCookie); token != "" {
		return token, nil
	}
	return "", core.ErrMissingAuthHeader
}

func currentUser(c fiber.Ctx) *core.User {
	user, _ := c.Locals(localUser).(*core.User)
	return user
}

func currentSession(c fiber.Ctx) *core.Session {
	session, _ := c.Locals(localSession).(*core.Session)
	return session
}

func microsoftToken(c fiber.Ctx) string {
	token, _ := c.Locals(localMicrosoftToken).(string)
	return token
}
