package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/lborres/kontak/core"
)

// Error types for Microsoft Graph API responses.
var (
	// ErrUnauthorised indicates the access token is invalid or expired.
	ErrUnauthorised = errors.New("microsoft: unauthorised")

	// ErrForbidden indicates the user lacks permission for the requested resource.
	ErrForbidden = errors.New("microsoft: forbidden")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("microsoft: not found")

	// ErrConflict indicates a name collision the request did not resolve.
	ErrConflict = errors.New("microsoft: conflict")

	// ErrRateLimited indicates the request was throttled by Microsoft Graph.
	ErrRateLimited = errors.New("microsoft: rate limited")

	// ErrBadRequest indicates the request was malformed.
	ErrBadRequest = errors.New("microsoft: bad request")

	// ErrServerError indicates a server-side error from Microsoft Graph.
	ErrServerError = errors.New("microsoft: server error")
)

// WrapError converts an HTTP status code to an appropriate error.
func WrapError(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorised
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if statusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}

// Error is a failed Graph response with the upstream code and message.
// It matches both the status sentinel above and the domain error the
// services act on.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("microsoft graph: status %d", e.Status)
	}
	return fmt.Sprintf("microsoft graph: status %d: %s: %s", e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if status := WrapError(e.Status); status != nil {
		errs = append(errs, status)
	}

	switch e.Status {
	case http.StatusUnauthorized:
		// The token was issued to us and Graph no longer accepts it.
		errs = append(errs, core.ErrReauthRequired)
	case http.StatusNotFound:
		errs = append(errs, core.ErrFolderNotFound)
	default:
		errs = append(errs, core.ErrUpstream)
	}
	return errs
}

// IsRetryable checks if the status code indicates a transient failure.
// The client backs off on these when Graph says how long to wait; it never
// retries on its own.
func IsRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout
}

// decodeError reads a Graph error body. The body is closed by the caller.
func decodeError(resp *http.Response) error {
	gerr := &Error{Status: resp.StatusCode}

	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		gerr.Code = payload.Error.Code
		gerr.Message = payload.Error.Message
	}
	return gerr
}
