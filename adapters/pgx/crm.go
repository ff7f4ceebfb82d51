package pgx

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/kontak/core"
)

// validID keeps malformed ids from reaching uuid columns, where they would
// fail with a cast error instead of matching nothing.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ============================================
// COMPANIES
// ============================================

const companyColumns = `id, name, industry, website, phone, address, notes, tags, owner_id, created_at, updated_at`

func scanCompany(row pgx.Row) (*core.Company, error) {
	c := &core.Company{}
	err := row.Scan(&c.ID, &c.Name, &c.Industry, &c.Website, &c.Phone, &c.Address, &c.Notes, &c.Tags, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, core.ErrNotFound)
	}
	return c, nil
}

func (a *Adapter) CreateCompany(ctx context.Context, c *core.Company) error {
	c.ID = uuid.NewString()
	c.Tags = tags(c.Tags)

	query := `INSERT INTO crm_companies (id, name, industry, website, phone, address, notes, tags, owner_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING created_at, updated_at`

	err := a.pool.QueryRow(ctx, query,
		c.ID, c.Name, c.Industry, c.Website, c.Phone, c.Address, c.Notes, c.Tags, c.OwnerID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return constraintError(err, core.ErrConflict)
}

func (a *Adapter) GetCompany(ctx context.Context, id string) (*core.Company, error) {
	if !validID(id) {
		return nil, core.ErrNotFound
	}
	return scanCompany(a.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM crm_companies WHERE id = $1`, id))
}

func (a *Adapter) ListCompanies(ctx context.Context, opts core.ListOptions) ([]*core.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM crm_companies
	          WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
	          ORDER BY name LIMIT $2 OFFSET $3`

	rows, err := a.pool.Query(ctx, query, opts.Search, opts.Limit, opts.Offset)
	return collect(rows, err, scanCompany)
}

// DeleteCompany removes the company. Documents, communications and tasks
// go with it; contacts and leads keep their rows with the reference nulled.
func (a *Adapter) DeleteCompany(ctx context.Context, id string) error {
	if !validID(id) {
		return core.ErrNotFound
	}
	tag, err := a.pool.Exec(ctx, `DELETE FROM crm_companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ============================================
// CONTACTS
// ============================================

const contactColumns = `id, first_name, last_name, email, phone, mobile, title, company_id, notes, tags, owner_id, created_at, updated_at`

func scanContactInto(row pgx.Row, c *core.Contact, extra ...any) error {
	dest := []any{&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Mobile, &c.Title,
		&c.CompanyID, &c.Notes, &c.Tags, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (a *Adapter) CreateContact(ctx context.Context, c *core.Contact) error {
	c.ID = uuid.NewString()
	c.Tags = tags(c.Tags)

	query := `INSERT INTO crm_contacts (id, first_name, last_name, email, phone, mobile, title, company_id, notes, tags, owner_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING created_at, updated_at`

	err := a.pool.QueryRow(ctx, query,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Mobile, c.Title, c.CompanyID, c.Notes, c.Tags, c.OwnerID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return constraintError(err, core.ErrConflict)
}

func (a *Adapter) GetContact(ctx context.Context, id string) (*core.Contact, error) {
	if !validID(id) {
		return nil, core.ErrNotFound
	}
	c := &core.Contact{}
	if err := scanContactInto(a.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM crm_contacts WHERE id = $1`, id), c); err != nil {
		return nil, notFound(err, core.ErrNotFound)
	}
	return c, nil
}

// ListContactSummaries reads the crm_contact_summary view.
func (a *Adapter) ListContactSummaries(ctx context.Context, opts core.ListOptions) ([]*core.ContactSummary, error) {
	query := `SELECT ` + contactColumns + `, company_name, document_count, communication_count, open_task_count
	          FROM crm_contact_summary
	          WHERE $1 = ''
	             OR first_name ILIKE '%' || $1 || '%'
	             OR last_name ILIKE '%' || $1 || '%'
	             OR email ILIKE '%' || $1 || '%'
	          ORDER BY last_name, first_name LIMIT $2 OFFSET $3`

	rows, err := a.pool.Query(ctx, query, opts.Search, opts.Limit, opts.Offset)
	return collect(rows, err, func(row pgx.Row) (*core.ContactSummary, error) {
		s := &core.ContactSummary{}
		err := scanContactInto(row, &s.Contact, &s.CompanyName, &s.DocumentCount, &s.CommunicationCount, &s.OpenTaskCount)
		return s, err
	})
}

func (a *Adapter) DeleteContact(ctx context.Context, id string) error {
	if !validID(id) {
		return core.ErrNotFound
	}
	tag, err := a.pool.Exec(ctx, `DELETE FROM crm_contacts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ============================================
// LEADS
// ============================================

const leadColumns = `id, title, status, source, value, contact_id, company_id, assigned_to, notes, tags, created_at, updated_at`

func scanLead(row pgx.Row) (*core.Lead, error) {
	l := &core.Lead{}
	err := row.Scan(&l.ID, &l.Title, &l.Status, &l.Source, &l.Value, &l.ContactID, &l.CompanyID,
		&l.AssignedTo, &l.Notes, &l.Tags, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, notFound(err, core.ErrNotFound)
	}
	return l, nil
}

func (a *Adapter) CreateLead(ctx context.Context, l *core.Lead) error {
	l.ID = uuid.NewString()
	l.Tags = tags(l.Tags)

	query := `INSERT INTO crm_leads (id, title, status, source, value, contact_id, company_id, assigned_to, notes, tags)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING created_at, updated_at`

	err := a.pool.QueryRow(ctx, query,
		l.ID, l.Title, l.Status, l.Source, l.Value, l.ContactID, l.CompanyID, l.AssignedTo, l.Notes, l.Tags,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	return constraintError(err, core.ErrConflict)
}

func (a *Adapter) ListLeads(ctx context.Context, opts core.ListOptions) ([]*core.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM crm_leads
	          WHERE $1 = '' OR title ILIKE '%' || $1 || '%'
	          ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := a.pool.Query(ctx, query, opts.Search, opts.Limit, opts.Offset)
	return collect(rows, err, scanLead)
}

func (a *Adapter) UpdateLeadStatus(ctx context.Context, id string, status core.LeadStatus) (*core.Lead, error) {
	if !validID(id) {
		return nil, core.ErrNotFound
	}
	query := `UPDATE crm_leads SET status = $1, updated_at = now() WHERE id = $2 RETURNING ` + leadColumns
	return scanLead(a.pool.QueryRow(ctx, query, status, id))
}

// ============================================
// TASKS
// ============================================

const taskColumns = `id, title, description, status, priority, due_date, contact_id, company_id, assigned_to, completed_at, created_at, updated_at`

func scanTask(row pgx.Row) (*core.Task, error) {
	t := &core.Task{}
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.ContactID,
		&t.CompanyID, &t.AssignedTo, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, notFound(err, core.ErrNotFound)
	}
	return t, nil
}

func (a *Adapter) CreateTask(ctx context.Context, t *core.Task) error {
	t.ID = uuid.NewString()

	query := `INSERT INTO crm_tasks (id, title, description, status, priority, due_date, contact_id, company_id, assigned_to)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING created_at, updated_at`

	err := a.pool.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.ContactID, t.CompanyID, t.AssignedTo,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return constraintError(err, core.ErrConflict)
}

// ListTasks lists tasks for contactID, or every task when contactID is empty.
// Open tasks come first, soonest due date first.
func (a *Adapter) ListTasks(ctx context.Context, contactID string, opts core.ListOptions) ([]*core.Task, error) {
	if contactID != "" && !validID(contactID) {
		return []*core.Task{}, nil
	}
	query := `SELECT ` + taskColumns + ` FROM crm_tasks
	          WHERE $1 = '' OR contact_id::text = $1
	          ORDER BY status = 'completed', due_date NULLS LAST, created_at DESC
	          LIMIT $2 OFFSET $3`

	rows, err := a.pool.Query(ctx, query, contactID, opts.Limit, opts.Offset)
	return collect(rows, err, scanTask)
}

func (a *Adapter) CompleteTask(ctx context.Context, id string, at time.Time) (*core.Task, error) {
	if !validID(id) {
		return nil, core.ErrNotFound
	}
	query := `UPDATE crm_tasks SET status = 'completed', completed_at = $1, updated_at = now()
	          WHERE id = $2 RETURNING ` + taskColumns
	return scanTask(a.pool.QueryRow(ctx, query, at, id))
}

// ============================================
// COMMUNICATIONS
// ============================================

const communicationColumns = `id, type, subject, content, contact_id, company_id, user_id, occurred_at, created_at`

func scanCommunication(row pgx.Row) (*core.Communication, error) {
	c := &core.Communication{}
	err := row.Scan(&c.ID, &c.Type, &c.Subject, &c.Content, &c.ContactID, &c.CompanyID, &c.UserID, &c.OccurredAt, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, core.ErrNotFound)
	}
	return c, nil
}

func (a *Adapter) CreateCommunication(ctx context.Context, c *core.Communication) error {
	c.ID = uuid.NewString()

	query := `INSERT INTO crm_communications (id, type, subject, content, contact_id, company_id, user_id, occurred_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING created_at`

	err := a.pool.QueryRow(ctx, query,
		c.ID, c.Type, c.Subject, c.Content, c.ContactID, c.CompanyID, c.UserID, c.OccurredAt,
	).Scan(&c.CreatedAt)
	return constraintError(err, core.ErrConflict)
}

func (a *Adapter) ListCommunications(ctx context.Context, contactID string, opts core.ListOptions) ([]*core.Communication, error) {
	if !validID(contactID) {
		return []*core.Communication{}, nil
	}
	query := `SELECT ` + communicationColumns + ` FROM crm_communications
	          WHERE contact_id = $1
	          ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`

	rows, err := a.pool.Query(ctx, query, contactID, opts.Limit, opts.Offset)
	return collect(rows, err, scanCommunication)
}
