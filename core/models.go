package core

import "time"

// User represents a user account in the system
//
// PasswordHash is nil for users who only ever signed in with Microsoft.
// MicrosoftAccountID is the durable reference to the cached Microsoft
// session; the refresh token itself is never stored here.
type User struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	PasswordHash       *string    `json:"-"`
	MicrosoftID        *string    `json:"microsoftId,omitempty"`
	MicrosoftEmail     *string    `json:"microsoftEmail,omitempty"`
	MicrosoftAccountID *string    `json:"-"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// HasMicrosoftSession reports whether sign-in with Microsoft linked this user.
func (u *User) HasMicrosoftSession() bool {
	return u.MicrosoftAccountID != nil && *u.MicrosoftAccountID != ""
}

// Session represents an active login session
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"-"` // Never expose in JSON (security!)
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionData combines user and session info
// The model returned to clients
type SessionData struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

type CreateSessionResult struct {
	Session *Session
	Token   string
}

// SignUpInput contains the data needed to register a new user
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password" masq:"secret"`
	Name     string `json:"name"`
}

// SignUpResult contains the newly created user and their first session
type SignUpResult struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
	Token   string   `json:"token"` // The raw token (not the hash)
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password" masq:"secret"`
}

type SignInResult struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
	Token   string   `json:"token"`
}

// VerifyResult is returned by the token verification endpoint.
type VerifyResult struct {
	Valid bool  `json:"valid"`
	User  *User `json:"user,omitempty"`
}
