package core

import "time"

// MicrosoftAccount is a cached Microsoft identity session.
//
// It lives only in the injected session store. Token is never persisted
// in the relational store and never serialized.
type MicrosoftAccount struct {
	AccountID string         `json:"accountId"` // Microsoft Graph user id
	Username  string         `json:"username"`  // mail, or userPrincipalName when mail is unset
	Name      string         `json:"name"`
	UserID    string         `json:"userId,omitempty"`
	Token     *ExternalToken `json:"-"`
	CachedAt  time.Time      `json:"cachedAt"`
}

// ExternalToken is an access/refresh token pair from the identity authority.
type ExternalToken struct {
	AccessToken  string    `masq:"secret"`
	RefreshToken string    `masq:"secret"`
	TokenType    string
	Expiry       time.Time
}

// Valid reports whether the access token can still be used, with a small
// margin so it does not expire mid-request.
func (t *ExternalToken) Valid(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return now.Add(time.Minute).Before(t.Expiry)
}

// MicrosoftProfile is the subset of the Graph /me resource used for sign-in.
type MicrosoftProfile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email returns the profile mail, falling back to the principal name.
func (p *MicrosoftProfile) Email() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

// MicrosoftLogin is the result of exchanging an authorization code.
// Account is the cached account handle.
type MicrosoftLogin struct {
	AccessToken string            `json:"-"`
	ExpiresOn   time.Time         `json:"expiresOn"`
	Account     *MicrosoftAccount `json:"account"`
}
