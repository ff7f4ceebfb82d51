package pgx

import (
	"context"

	"github.com/lborres/kontak/core"
)

func (a *Adapter) GetIntegrationSettings(ctx context.Context, userID string) (*core.IntegrationSettings, error) {
	if !validID(userID) {
		return nil, core.ErrNotFound
	}
	query := `SELECT user_id, record_email_history, email_signature, updated_at
	          FROM microsoft_integration_settings WHERE user_id = $1`

	s := &core.IntegrationSettings{}
	err := a.pool.QueryRow(ctx, query, userID).Scan(&s.UserID, &s.RecordEmailHistory, &s.EmailSignature, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err, core.ErrNotFound)
	}
	return s, nil
}

func (a *Adapter) UpsertIntegrationSettings(ctx context.Context, s *core.IntegrationSettings) error {
	query := `INSERT INTO microsoft_integration_settings (user_id, record_email_history, email_signature, updated_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id) DO UPDATE
	          SET record_email_history = EXCLUDED.record_email_history,
	              email_signature = EXCLUDED.email_signature,
	              updated_at = EXCLUDED.updated_at`

	_, err := a.pool.Exec(ctx, query, s.UserID, s.RecordEmailHistory, s.EmailSignature, s.UpdatedAt)
	return constraintError(err, core.ErrConflict)
}
