package pgx

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/kontak/core"
)

const emailColumns = `id, user_id, direction, microsoft_message_id, subject, body, is_html, sender, to_recipients, cc_recipients, bcc_recipients, contact_id, created_at`

func scanEmailRecord(row pgx.Row) (*core.EmailRecord, error) {
	r := &core.EmailRecord{}
	err := row.Scan(&r.ID, &r.UserID, &r.Direction, &r.MicrosoftMessageID, &r.Subject, &r.Body, &r.IsHTML,
		&r.Sender, &r.To, &r.Cc, &r.Bcc, &r.ContactID, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err, core.ErrNotFound)
	}
	return r, nil
}

func (a *Adapter) CreateEmailRecord(ctx context.Context, r *core.EmailRecord) error {
	r.ID = uuid.NewString()

	query := `INSERT INTO microsoft_email_history (id, user_id, direction, microsoft_message_id, subject, body, is_html, sender, to_recipients, cc_recipients, bcc_recipients, contact_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING created_at`

	err := a.pool.QueryRow(ctx, query,
		r.ID, r.UserID, r.Direction, r.MicrosoftMessageID, r.Subject, r.Body, r.IsHTML,
		r.Sender, tags(r.To), tags(r.Cc), tags(r.Bcc), r.ContactID,
	).Scan(&r.CreatedAt)
	return constraintError(err, core.ErrConflict)
}

// ListEmailRecords returns the user's most recent audit rows, newest first.
func (a *Adapter) ListEmailRecords(ctx context.Context, userID string, limit int) ([]*core.EmailRecord, error) {
	if !validID(userID) {
		return []*core.EmailRecord{}, nil
	}
	query := `SELECT ` + emailColumns + ` FROM microsoft_email_history
	          WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := a.pool.Query(ctx, query, userID, limit)
	return collect(rows, err, scanEmailRecord)
}
