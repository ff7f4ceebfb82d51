package pgx

import (
	"context"

	"github.com/lborres/kontak/core"
)

// LinkMicrosoftAccount stores the Microsoft identity on the user. accountID
// is the handle of the cached session; no tokens are written.
func (a *Adapter) LinkMicrosoftAccount(ctx context.Context, userID string, profile *core.MicrosoftProfile, accountID string) error {
	query := `UPDATE users SET microsoft_id = $1, microsoft_email = $2, microsoft_account_id = $3, updated_at = now()
	          WHERE id = $4`

	tag, err := a.pool.Exec(ctx, query, profile.ID, profile.Email(), accountID, userID)
	if err != nil {
		// microsoft_id is unique: one Microsoft account links to one user.
		return constraintError(err, core.ErrConflict)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (a *Adapter) UnlinkMicrosoftAccount(ctx context.Context, userID string) error {
	query := `UPDATE users SET microsoft_id = NULL, microsoft_email = NULL, microsoft_account_id = NULL, updated_at = now()
	          WHERE id = $1`

	tag, err := a.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}
