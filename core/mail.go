package core

import "time"

type EmailAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"` // base64 in JSON
}

type SendEmailInput struct {
	To          []string          `json:"to"`
	Cc          []string          `json:"cc"`
	Bcc         []string          `json:"bcc"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	IsHTML      bool              `json:"isHtml"`
	Attachments []EmailAttachment `json:"attachments"`
	ContactID   *string           `json:"contactId,omitempty"`
}

type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// EmailMessage is a mailbox message as returned by the mail API.
type EmailMessage struct {
	ID               string         `json:"id"`
	Subject          string         `json:"subject"`
	BodyPreview      string         `json:"bodyPreview"`
	From             *EmailAddress  `json:"from,omitempty"`
	To               []EmailAddress `json:"toRecipients"`
	Cc               []EmailAddress `json:"ccRecipients"`
	ReceivedDateTime time.Time      `json:"receivedDateTime"`
	IsRead           bool           `json:"isRead"`
	WebLink          string         `json:"webLink,omitempty"`
}

type EmailFilter struct {
	Search string
	Top    int
}

type EmailDirection string

const (
	EmailSent     EmailDirection = "sent"
	EmailReceived EmailDirection = "received"
)

// EmailRecord is the audit snapshot of a message kept in the relational store.
type EmailRecord struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"userId"`
	Direction          EmailDirection `json:"direction"`
	MicrosoftMessageID *string        `json:"microsoftMessageId,omitempty"`
	Subject            string         `json:"subject"`
	Body               string         `json:"body"`
	IsHTML             bool           `json:"isHtml"`
	Sender             string         `json:"sender"`
	To                 []string       `json:"to"`
	Cc                 []string       `json:"cc"`
	Bcc                []string       `json:"bcc"`
	ContactID          *string        `json:"contactId,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// IntegrationSettings are per-user Microsoft integration preferences.
type IntegrationSettings struct {
	UserID             string    `json:"userId"`
	RecordEmailHistory bool      `json:"recordEmailHistory"`
	EmailSignature     *string   `json:"emailSignature,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func DefaultIntegrationSettings(userID string) *IntegrationSettings {
	return &IntegrationSettings{UserID: userID, RecordEmailHistory: true}
}
