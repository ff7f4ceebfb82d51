package services

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type CRMService struct {
	db  core.CRMStorage
	now func() time.Time
}

var _ core.CRMHandler = (*CRMService)(nil)

func NewCRMService(db core.CRMStorage) *CRMService {
	return &CRMService{db: db, now: time.Now}
}

func normalizeList(opts core.ListOptions) core.ListOptions {
	switch {
	case opts.Limit <= 0:
		opts.Limit = defaultListLimit
	case opts.Limit > maxListLimit:
		opts.Limit = maxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	opts.Search = strings.TrimSpace(opts.Search)
	return opts
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return goerr.Wrap(core.ErrValidation, field+" is required", goerr.V("field", field))
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Companies

func (s *CRMService) CreateCompany(ctx context.Context, c *core.Company) error {
	if err := required("name", c.Name); err != nil {
		return err
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Tags = normalizeTags(c.Tags)
	return s.db.CreateCompany(ctx, c)
}

func (s *CRMService) GetCompany(ctx context.Context, id string) (*core.Company, error) {
	return s.db.GetCompany(ctx, id)
}

func (s *CRMService) ListCompanies(ctx context.Context, opts core.ListOptions) ([]*core.Company, error) {
	return s.db.ListCompanies(ctx, normalizeList(opts))
}

// DeleteCompany removes the company. Its documents, communications and
// tasks go with it; leads and contacts only lose the reference.
func (s *CRMService) DeleteCompany(ctx context.Context, id string) error {
	return s.db.DeleteCompany(ctx, id)
}

// Contacts

func (s *CRMService) CreateContact(ctx context.Context, c *core.Contact) error {
	if strings.TrimSpace(c.FirstName) == "" && strings.TrimSpace(c.LastName) == "" {
		return goerr.Wrap(core.ErrValidation, "first or last name is required")
	}
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	if c.Email != nil {
		email := normalizeEmail(*c.Email)
		if err := validateEmail(email); err != nil {
			return err
		}
		c.Email = &email
	}
	if c.CompanyID != nil {
		if _, err := s.db.GetCompany(ctx, *c.CompanyID); err != nil {
			return goerr.Wrap(err, "company does not exist", goerr.V("company_id", *c.CompanyID))
		}
	}
	c.Tags = normalizeTags(c.Tags)
	return s.db.CreateContact(ctx, c)
}

func (s *CRMService) GetContact(ctx context.Context, id string) (*core.Contact, error) {
	return s.db.GetContact(ctx, id)
}

func (s *CRMService) ListContacts(ctx context.Context, opts core.ListOptions) ([]*core.ContactSummary, error) {
	return s.db.ListContactSummaries(ctx, normalizeList(opts))
}

func (s *CRMService) DeleteContact(ctx context.Context, id string) error {
	return s.db.DeleteContact(ctx, id)
}

// Leads

func (s *CRMService) CreateLead(ctx context.Context, l *core.Lead) error {
	if err := required("title", l.Title); err != nil {
		return err
	}
	if l.Status == "" {
		l.Status = core.LeadNew
	}
	if !l.Status.Valid() {
		return goerr.Wrap(core.ErrValidation, "unknown lead status", goerr.V("status", l.Status))
	}
	if l.Value != nil && *l.Value < 0 {
		return goerr.Wrap(core.ErrValidation, "lead value must not be negative")
	}
	l.Title = strings.TrimSpace(l.Title)
	l.Tags = normalizeTags(l.Tags)
	return s.db.CreateLead(ctx, l)
}

func (s *CRMService) ListLeads(ctx context.Context, opts core.ListOptions) ([]*core.Lead, error) {
	return s.db.ListLeads(ctx, normalizeList(opts))
}

func (s *CRMService) UpdateLeadStatus(ctx context.Context, id string, status core.LeadStatus) (*core.Lead, error) {
	if !status.Valid() {
		return nil, goerr.Wrap(core.ErrValidation, "unknown lead status", goerr.V("status", status))
	}
	return s.db.UpdateLeadStatus(ctx, id, status)
}

// Tasks

func (s *CRMService) CreateTask(ctx context.Context, t *core.Task) error {
	if err := required("title", t.Title); err != nil {
		return err
	}
	t.Title = strings.TrimSpace(t.Title)
	t.Status = core.TaskOpen
	t.CompletedAt = nil
	if t.Priority == "" {
		t.Priority = "medium"
	}
	switch t.Priority {
	case "low", "medium", "high":
	default:
		return goerr.Wrap(core.ErrValidation, "unknown task priority", goerr.V("priority", t.Priority))
	}
	return s.db.CreateTask(ctx, t)
}

func (s *CRMService) ListTasks(ctx context.Context, contactID string, opts core.ListOptions) ([]*core.Task, error) {
	return s.db.ListTasks(ctx, contactID, normalizeList(opts))
}

func (s *CRMService) CompleteTask(ctx context.Context, id string) (*core.Task, error) {
	return s.db.CompleteTask(ctx, id, s.now())
}

// Communications

func (s *CRMService) LogCommunication(ctx context.Context, c *core.Communication) error {
	if !c.Type.Valid() {
		return goerr.Wrap(core.ErrValidation, "unknown communication type", goerr.V("type", c.Type))
	}
	if c.ContactID == nil && c.CompanyID == nil {
		return goerr.Wrap(core.ErrValidation, "contact or company is required")
	}
	if c.OccurredAt.IsZero() {
		c.OccurredAt = s.now()
	}
	return s.db.CreateCommunication(ctx, c)
}

func (s *CRMService) ListCommunications(ctx context.Context, contactID string, opts core.ListOptions) ([]*core.Communication, error) {
	return s.db.ListCommunications(ctx, contactID, normalizeList(opts))
}
