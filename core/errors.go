package core

import "errors"

// Authentication Related Errors
var (
	// User errors
	ErrUserExists         = errors.New("user already exists")       // 409 Conflict
	ErrUserNotFound       = errors.New("user not found")            // 404 Not Found
	ErrInvalidCredentials = errors.New("invalid email or password") // 401 Unauthorized
	ErrForbidden          = errors.New("forbidden")                 // 403 Forbidden
)

// Session errors
var (
	ErrMissingAuthHeader = errors.New("missing authorization header") // 401
	ErrInvalidToken      = errors.New("invalid session token")        // 401
	ErrSessionNotFound   = errors.New("session not found")            // 401
	ErrSessionExpired    = errors.New("session expired")              // 401
	ErrCacheNotFound     = errors.New("not found in cache")
)

// Microsoft identity errors. Handlers answer these with a fresh auth URL.
var (
	ErrReauthRequired       = errors.New("microsoft re-authentication required")  // 401
	ErrMicrosoftNotLinked   = errors.New("microsoft account not linked")          // 401
	ErrInvalidGrant         = errors.New("authorization code is invalid or used") // 401
	ErrInvalidOAuthState    = errors.New("invalid oauth state")                   // 400
	ErrAuthorizationMissing = errors.New("authorization code is required")        // 400
)

// Upstream errors (file store / mail API)
var (
	ErrTeamNotFound     = errors.New("team not found")     // 404
	ErrFolderNotFound   = errors.New("folder not found")   // 404
	ErrDocumentNotFound = errors.New("document not found") // 404
	ErrUpstream         = errors.New("upstream request failed")
)

// Validation errors (client input)
var (
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Bearer <token>'") // 401
	ErrEmailRequired     = errors.New("email is required")                                       // 400
	ErrPasswordRequired  = errors.New("password is required")                                    // 400
	ErrPasswordTooShort  = errors.New("password is too short")                                   // 400
	ErrPasswordTooLong   = errors.New("password is too long")                                    // 400
	ErrInvalidEmail      = errors.New("invalid email format")                                    // 400
	ErrValidation        = errors.New("validation failed")                                       // 400
	ErrRecipientRequired = errors.New("at least one recipient is required")                      // 400
	ErrSubjectRequired   = errors.New("subject is required")                                     // 400
	ErrFileRequired      = errors.New("file is required")                                        // 400
	ErrQueryRequired     = errors.New("search query is required")                                // 400
)

// CRM errors
var (
	ErrNotFound = errors.New("record not found") // 404
	ErrConflict = errors.New("record conflicts") // 409
)

// Config errors (server-side configuration)
var (
	ErrDBAdapterRequired   = errors.New("database adapter is required")           // 500
	ErrHTTPAdapterRequired = errors.New("adapter is required")                    // 500
	ErrSecretRequired      = errors.New("secret is required")                     // 500
	ErrSecretTooShort      = errors.New("secret too short")                       // 500
	ErrMicrosoftConfig     = errors.New("microsoft integration is misconfigured") // 500
)

// Migration errors
var (
	ErrMigrationOrder  = errors.New("migrations must have strictly increasing versions")
	ErrMigrationFailed = errors.New("migration failed")
)

var (
	ErrNotImplemented = errors.New("not implemented") // 501
)
