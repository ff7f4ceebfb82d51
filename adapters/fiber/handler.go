package fiber

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/logging"
)

const (
	stateCookie = "oauth_state"
	stateMaxAge = 10 * time.Minute
)

func (a *Adapter) register(c fiber.Ctx) error {
	var input core.SignUpInput
	if err := c.Bind().Body(&input); err != nil {
		return a.invalidBody(c, err)
	}

	result, err := a.auth.SignUp(c.Context(), input, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (a *Adapter) login(c fiber.Ctx) error {
	var input core.SignInInput
	if err := c.Bind().Body(&input); err != nil {
		return a.invalidBody(c, err)
	}

	result, err := a.auth.SignIn(c.Context(), input, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// logout ends the session and drops the cached Microsoft session with it.
func (a *Adapter) logout(c fiber.Ctx) error {
	token, err := extractToken(c)
	if err != nil {
		return a.fail(c, err)
	}

	if err := a.auth.SignOut(c.Context(), token); err != nil {
		return a.fail(c, err)
	}

	if user := currentUser(c); user != nil && user.HasMicrosoftSession() {
		if err := a.microsoft.Forget(*user.MicrosoftAccountID); err != nil {
			logging.From(c.Context()).Warn("failed to forget microsoft session", "error", err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "signed out successfully",
	})
}

// logoutAll ends every session of the current user, on any device.
func (a *Adapter) logoutAll(c fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return a.fail(c, core.ErrInvalidToken)
	}

	count, err := a.auth.SignOutAll(c.Context(), user.ID)
	if err != nil {
		return a.fail(c, err)
	}

	if user.HasMicrosoftSession() {
		if err := a.microsoft.Forget(*user.MicrosoftAccountID); err != nil {
			logging.From(c.Context()).Warn("failed to forget microsoft session", "error", err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":  "signed out everywhere",
		"sessions": count,
	})
}

func (a *Adapter) me(c fiber.Ctx) error {
	return c.JSON(core.SessionData{
		User:    currentUser(c),
		Session: currentSession(c),
	})
}

// verify reads the credential from the body, then the request headers.
// A missing or dead credential is {valid: false}, not an error.
func (a *Adapter) verify(c fiber.Ctx) error {
	var body struct {
		Token string `json:"token"`
	}
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&body); err != nil {
			return a.invalidBody(c, err)
		}
	}

	token := strings.TrimSpace(body.Token)
	if token == "" {
		token, _ = extractToken(c)
	}
	if token == "" {
		return c.JSON(core.VerifyResult{Valid: false})
	}

	result, err := a.auth.Verify(c.Context(), token)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(result)
}

func (a *Adapter) microsoftLogin(c fiber.Ctx) error {
	authURL, state, err := a.microsoft.AuthURL("")
	if err != nil {
		return a.fail(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateMaxAge.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	if c.Query("redirect") == "true" {
		return c.Redirect().Status(fiber.StatusFound).To(authURL)
	}
	return c.JSON(fiber.Map{"authUrl": authURL, "state": state})
}

// microsoftCallback redeems the authorization code, signs the user in and
// binds the cached Microsoft session to them. With a frontend configured
// the browser is sent there with the session token in the fragment.
func (a *Adapter) microsoftCallback(c fiber.Ctx) error {
	ctx := c.Context()

	if code := c.Query("error"); code != "" {
		desc := c.Query("error_description", code)
		return a.fail(c, goerr.Wrap(core.ErrReauthRequired, desc, goerr.V("error", code)))
	}

	// The state cookie is only present when the flow started at /microsoft/login.
	if expected := c.Cookies(stateCookie); expected != "" {
		c.ClearCookie(stateCookie)
		if c.Query("state") != expected {
			return a.fail(c, core.ErrInvalidOAuthState)
		}
	}

	login, err := a.microsoft.ExchangeCode(ctx, c.Query("code"))
	if err != nil {
		return a.fail(c, err)
	}

	result, err := a.auth.SignInWithMicrosoft(ctx, login, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return a.fail(c, err)
	}

	if err := a.microsoft.Bind(login.Account.AccountID, result.User.ID); err != nil {
		return a.fail(c, err)
	}

	if a.frontendURL != "" {
		target := strings.TrimRight(a.frontendURL, "/") + "/auth/callback#token=" + url.QueryEscape(result.Token)
		return c.Redirect().Status(fiber.StatusFound).To(target)
	}

	return c.JSON(fiber.Map{
		"token":     result.Token,
		"user":      result.User,
		"session":   result.Session,
		"account":   login.Account,
		"expiresOn": login.ExpiresOn,
	})
}

// microsoftUser reports the Microsoft link of the signed-in user. Other
// users cannot be read.
func (a *Adapter) microsoftUser(c fiber.Ctx) error {
	current := currentUser(c)
	if c.Params("userId") != current.ID {
		return a.fail(c, core.ErrForbidden)
	}

	user, err := a.auth.GetUser(c.Context(), current.ID)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"userId":          user.ID,
		"microsoftLinked": user.HasMicrosoftSession(),
		"microsoftId":     user.MicrosoftID,
		"microsoftEmail":  user.MicrosoftEmail,
	})
}

func (a *Adapter) invalidBody(c fiber.Ctx, err error) error {
	return a.fail(c, goerr.Wrap(core.ErrValidation, "invalid request body", goerr.V("cause", err.Error())))
}
