package core

import (
	"context"
	"time"
)

type SessionStorage interface {
	CreateSession(ctx context.Context, session *Session) error

	// Query methods
	GetSessionByHash(ctx context.Context, tokenHash string) (*Session, error)
	GetUserSessions(ctx context.Context, userID string) ([]*Session, error)

	// Delete methods
	DeleteSessionByHash(ctx context.Context, tokenHash string) error
	DeleteUserSessions(ctx context.Context, userID string) (int, error)

	// Cleanup
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error

	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByMicrosoftID(ctx context.Context, microsoftID string) (*User, error)

	UpdateUser(ctx context.Context, u *User) error
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
}

// MicrosoftLinkStorage records which Microsoft account a user signed in with.
type MicrosoftLinkStorage interface {
	LinkMicrosoftAccount(ctx context.Context, userID string, profile *MicrosoftProfile, accountID string) error
	UnlinkMicrosoftAccount(ctx context.Context, userID string) error
}

type AuthStorage interface {
	UserStorage
	MicrosoftLinkStorage
	SessionStorage
}

type CompanyStorage interface {
	CreateCompany(ctx context.Context, c *Company) error
	GetCompany(ctx context.Context, id string) (*Company, error)
	ListCompanies(ctx context.Context, opts ListOptions) ([]*Company, error)
	DeleteCompany(ctx context.Context, id string) error
}

type ContactStorage interface {
	CreateContact(ctx context.Context, c *Contact) error
	GetContact(ctx context.Context, id string) (*Contact, error)
	ListContactSummaries(ctx context.Context, opts ListOptions) ([]*ContactSummary, error)
	DeleteContact(ctx context.Context, id string) error
}

type LeadStorage interface {
	CreateLead(ctx context.Context, l *Lead) error
	ListLeads(ctx context.Context, opts ListOptions) ([]*Lead, error)
	UpdateLeadStatus(ctx context.Context, id string, status LeadStatus) (*Lead, error)
}

type TaskStorage interface {
	CreateTask(ctx context.Context, t *Task) error
	ListTasks(ctx context.Context, contactID string, opts ListOptions) ([]*Task, error)
	CompleteTask(ctx context.Context, id string, at time.Time) (*Task, error)
}

type CommunicationStorage interface {
	CreateCommunication(ctx context.Context, c *Communication) error
	ListCommunications(ctx context.Context, contactID string, opts ListOptions) ([]*Communication, error)
}

type CRMStorage interface {
	CompanyStorage
	ContactStorage
	LeadStorage
	TaskStorage
	CommunicationStorage
}

// DocumentStorage keeps references to files uploaded to the external store.
type DocumentStorage interface {
	CreateDocument(ctx context.Context, d *Document) error
	ListContactDocuments(ctx context.Context, contactID string) ([]*Document, error)
}

type EmailHistoryStorage interface {
	CreateEmailRecord(ctx context.Context, r *EmailRecord) error
	ListEmailRecords(ctx context.Context, userID string, limit int) ([]*EmailRecord, error)
}

type SettingsStorage interface {
	GetIntegrationSettings(ctx context.Context, userID string) (*IntegrationSettings, error)
	UpsertIntegrationSettings(ctx context.Context, s *IntegrationSettings) error
}

// MigrationStorage applies schema migrations and keeps the applied-migrations ledger.
type MigrationStorage interface {
	EnsureLedger(ctx context.Context) error
	AppliedVersions(ctx context.Context) (map[int]bool, error)

	// ApplyMigration runs the statements and records the ledger row in one
	// transaction. The ledger row is written only when every statement
	// succeeds; the outcome tells whether anything had to be created.
	ApplyMigration(ctx context.Context, m Migration) MigrationResult
}

// Storage is everything the relational adapter provides.
type Storage interface {
	AuthStorage
	CRMStorage
	DocumentStorage
	EmailHistoryStorage
	SettingsStorage
}
