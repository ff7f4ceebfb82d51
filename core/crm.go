package core

import "time"

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Industry  *string   `json:"industry,omitempty"`
	Website   *string   `json:"website,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Tags      []string  `json:"tags"`
	OwnerID   *string   `json:"ownerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Contact struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Mobile    *string   `json:"mobile,omitempty"`
	Title     *string   `json:"title,omitempty"`
	CompanyID *string   `json:"companyId,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Tags      []string  `json:"tags"`
	OwnerID   *string   `json:"ownerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FullName is the name used for the contact's document folder.
func (c *Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// ContactSummary is a row of the contact summary view.
type ContactSummary struct {
	Contact
	CompanyName        *string `json:"companyName,omitempty"`
	DocumentCount      int     `json:"documentCount"`
	CommunicationCount int     `json:"communicationCount"`
	OpenTaskCount      int     `json:"openTaskCount"`
}

type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadWon       LeadStatus = "won"
	LeadLost      LeadStatus = "lost"
)

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadContacted, LeadQualified, LeadWon, LeadLost:
		return true
	}
	return false
}

// Lead references its contact and company softly; both are nulled when
// the referenced row is deleted.
type Lead struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Status     LeadStatus `json:"status"`
	Source     *string    `json:"source,omitempty"`
	Value      *float64   `json:"value,omitempty"`
	ContactID  *string    `json:"contactId,omitempty"`
	CompanyID  *string    `json:"companyId,omitempty"`
	AssignedTo *string    `json:"assignedTo,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	Tags       []string   `json:"tags"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskCompleted TaskStatus = "completed"
)

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ContactID   *string    `json:"contactId,omitempty"`
	CompanyID   *string    `json:"companyId,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CommunicationType string

const (
	CommunicationEmail   CommunicationType = "email"
	CommunicationCall    CommunicationType = "call"
	CommunicationMeeting CommunicationType = "meeting"
	CommunicationNote    CommunicationType = "note"
)

func (t CommunicationType) Valid() bool {
	switch t {
	case CommunicationEmail, CommunicationCall, CommunicationMeeting, CommunicationNote:
		return true
	}
	return false
}

type Communication struct {
	ID         string            `json:"id"`
	Type       CommunicationType `json:"type"`
	Subject    *string           `json:"subject,omitempty"`
	Content    *string           `json:"content,omitempty"`
	ContactID  *string           `json:"contactId,omitempty"`
	CompanyID  *string           `json:"companyId,omitempty"`
	UserID     *string           `json:"userId,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// ListOptions bounds list queries.
type ListOptions struct {
	Limit  int
	Offset int
	Search string
}
