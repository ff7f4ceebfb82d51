package core

// Access is the authentication an endpoint requires.
type Access int

const (
	AccessPublic    Access = iota
	AccessSession          // valid session credential
	AccessMicrosoft        // session plus a live Microsoft session
)

// Group is the mount point an endpoint belongs to.
type Group string

const (
	GroupAuth      Group = "auth"
	GroupMicrosoft Group = "microsoft"
	GroupCRM       Group = "crm"
)

// Endpoint is a framework-agnostic route description. HTTP adapters bind a
// handler to each OperationID.
type Endpoint struct {
	Group       Group
	Method      string
	Path        string
	Access      Access
	OperationID string
	Description string
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Error          string `json:"error"`
	ReauthRequired bool   `json:"reauthRequired,omitempty"`
	AuthURL        string `json:"authUrl,omitempty"`
}
