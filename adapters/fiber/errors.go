package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/logging"
)

// fail writes err as an ErrorResponse. Every authentication failure carries
// a fresh authorization URL; reauthRequired is set only when the Microsoft
// session itself is missing or rejected.
func (a *Adapter) fail(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	resp := core.ErrorResponse{Error: err.Error()}

	if status == http.StatusUnauthorized {
		resp.ReauthRequired = needsReauth(err)
		resp.AuthURL = a.authURL()
	}

	if status >= http.StatusInternalServerError {
		attrs := []any{"error", err, "status", status, "method", c.Method(), "path", c.Path()}
		var gerr *goerr.Error
		if errors.As(err, &gerr) {
			attrs = append(attrs, "values", gerr.Values())
		}
		logging.From(c.Context()).Error("request failed", attrs...)

		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
		}
	}

	return c.Status(status).JSON(resp)
}

func (a *Adapter) authURL() string {
	if a.microsoft == nil {
		return ""
	}
	authURL, _, err := a.microsoft.AuthURL("")
	if err != nil {
		return ""
	}
	return authURL
}

func needsReauth(err error) bool {
	return errors.Is(err, core.ErrReauthRequired) ||
		errors.Is(err, core.ErrMicrosoftNotLinked) ||
		errors.Is(err, core.ErrInvalidGrant)
}

// mapErrorToStatus maps kontak errors to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	// Re-authentication outranks whatever upstream failure caused it.
	if needsReauth(err) {
		return http.StatusUnauthorized
	}

	switch {
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidAuthHeader),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrSessionExpired):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, core.ErrEmailRequired),
		errors.Is(err, core.ErrPasswordRequired),
		errors.Is(err, core.ErrPasswordTooShort),
		errors.Is(err, core.ErrPasswordTooLong),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrRecipientRequired),
		errors.Is(err, core.ErrSubjectRequired),
		errors.Is(err, core.ErrFileRequired),
		errors.Is(err, core.ErrQueryRequired),
		errors.Is(err, core.ErrAuthorizationMissing),
		errors.Is(err, core.ErrInvalidOAuthState):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrTeamNotFound),
		errors.Is(err, core.ErrFolderNotFound),
		errors.Is(err, core.ErrDocumentNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrUserExists),
		errors.Is(err, core.ErrConflict):
		return http.StatusConflict

	case errors.Is(err, core.ErrNotImplemented):
		return http.StatusNotImplemented

	case errors.Is(err, core.ErrUpstream):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// errorHandler answers framework errors (unknown route, body too large)
// in the same shape as handler errors.
func errorHandler(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal server error"

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		status = ferr.Code
		msg = ferr.Message
	} else {
		logging.From(c.Context()).Error("unhandled error", "error", err, "path", c.Path())
	}

	return c.Status(status).JSON(core.ErrorResponse{Error: msg})
}
