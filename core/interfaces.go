package core

import (
	"context"
	"io"
)

// Ports define interfaces for external dependencies

// ============================================
// MICROSOFT PORTS
// ============================================

// MicrosoftAuthority is the external identity service.
type MicrosoftAuthority interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalToken, error)

	// Refresh redeems the refresh token of token for a new pair.
	Refresh(ctx context.Context, token *ExternalToken) (*ExternalToken, error)
}

// MicrosoftSessionStore holds cached Microsoft sessions keyed by account id.
type MicrosoftSessionStore = Cache[*MicrosoftAccount]

type DirectoryClient interface {
	Me(ctx context.Context, accessToken string) (*MicrosoftProfile, error)
}

type TeamsClient interface {
	JoinedTeams(ctx context.Context, accessToken string) ([]Team, error)
	TeamSite(ctx context.Context, accessToken, teamID string) (*Site, error)
}

type DriveClient interface {
	// GetItemByPath resolves a path relative to the site drive root.
	GetItemByPath(ctx context.Context, accessToken, siteID, path string) (*DriveItem, error)
	GetItem(ctx context.Context, accessToken, siteID, itemID string) (*DriveItem, error)
	// CreateFolder creates name under parentPath ("" is the drive root),
	// renaming on collision.
	CreateFolder(ctx context.Context, accessToken, siteID, parentPath, name string) (*DriveItem, error)
	// Upload writes content to folderPath/fileName, replacing any existing file.
	Upload(ctx context.Context, accessToken, siteID, folderPath, fileName string, content io.Reader, size int64) (*DriveItem, error)
	CreateShareLink(ctx context.Context, accessToken, siteID, itemID string) (string, error)
	ListChildren(ctx context.Context, accessToken, siteID, path string) ([]DriveItem, error)
	Download(ctx context.Context, accessToken, siteID, itemID string) (*FileContent, error)
	SearchFiles(ctx context.Context, accessToken, query string, size int) ([]DriveItem, error)
}

type MailClient interface {
	SendMail(ctx context.Context, accessToken string, input *SendEmailInput) error
	ListMessages(ctx context.Context, accessToken string, filter EmailFilter) ([]EmailMessage, error)
}

type GraphClient interface {
	DirectoryClient
	TeamsClient
	DriveClient
	MailClient
}

// ============================================
// HANDLERS (for HTTP adapters)
// ============================================

type AuthHandler interface {
	SignUp(ctx context.Context, input SignUpInput, ipAddress, userAgent string) (*SignUpResult, error)
	SignIn(ctx context.Context, input SignInInput, ipAddress, userAgent string) (*SignInResult, error)
	SignOut(ctx context.Context, token string) error
	SignOutAll(ctx context.Context, userID string) (int, error)
	GetSession(ctx context.Context, token string) (*SessionData, error)
	Verify(ctx context.Context, token string) (*VerifyResult, error)
	SignInWithMicrosoft(ctx context.Context, login *MicrosoftLogin, ipAddress, userAgent string) (*SignInResult, error)
	GetUser(ctx context.Context, id string) (*User, error)
}

type MicrosoftHandler interface {
	AuthURL(state string) (url string, usedState string, err error)
	ExchangeCode(ctx context.Context, code string) (*MicrosoftLogin, error)
	AccessToken(ctx context.Context, accountHandle, userID string) (string, error)
	// Bind ties a cached session to the local user it signed in.
	Bind(accountHandle, userID string) error
	Forget(accountHandle string) error
}

type DocumentHandler interface {
	FolderPath(companyName, contactName string) string
	Upload(ctx context.Context, accessToken string, input UploadInput) (*UploadedDocument, error)
	ContactDocuments(ctx context.Context, accessToken, companyName, contactName string) ([]DriveItem, error)
	Search(ctx context.Context, accessToken string, input SearchInput) ([]DriveItem, error)
	Download(ctx context.Context, accessToken, fileID string) (*FileContent, error)
	ContactDocumentRefs(ctx context.Context, contactID string) ([]*Document, error)
}

type MailHandler interface {
	Send(ctx context.Context, accessToken, userID string, input SendEmailInput) error
	List(ctx context.Context, accessToken string, filter EmailFilter) ([]EmailMessage, error)
	History(ctx context.Context, userID string, limit int) ([]*EmailRecord, error)
	Settings(ctx context.Context, userID string) (*IntegrationSettings, error)
	UpdateSettings(ctx context.Context, settings *IntegrationSettings) error
}

type CRMHandler interface {
	CreateCompany(ctx context.Context, c *Company) error
	GetCompany(ctx context.Context, id string) (*Company, error)
	ListCompanies(ctx context.Context, opts ListOptions) ([]*Company, error)
	DeleteCompany(ctx context.Context, id string) error

	CreateContact(ctx context.Context, c *Contact) error
	GetContact(ctx context.Context, id string) (*Contact, error)
	ListContacts(ctx context.Context, opts ListOptions) ([]*ContactSummary, error)
	DeleteContact(ctx context.Context, id string) error

	CreateLead(ctx context.Context, l *Lead) error
	ListLeads(ctx context.Context, opts ListOptions) ([]*Lead, error)
	UpdateLeadStatus(ctx context.Context, id string, status LeadStatus) (*Lead, error)

	CreateTask(ctx context.Context, t *Task) error
	ListTasks(ctx context.Context, contactID string, opts ListOptions) ([]*Task, error)
	CompleteTask(ctx context.Context, id string) (*Task, error)

	LogCommunication(ctx context.Context, c *Communication) error
	ListCommunications(ctx context.Context, contactID string, opts ListOptions) ([]*Communication, error)
}
