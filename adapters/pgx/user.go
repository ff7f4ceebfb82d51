package pgx

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/kontak/core"
)

const userColumns = `id, email, name, password_hash, microsoft_id, microsoft_email, microsoft_account_id, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*core.User, error) {
	u := &core.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.MicrosoftID, &u.MicrosoftEmail,
		&u.MicrosoftAccountID, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err, core.ErrUserNotFound)
	}
	return u, nil
}

func (a *Adapter) CreateUser(ctx context.Context, user *core.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `INSERT INTO users (id, email, name, password_hash, microsoft_id, microsoft_email, microsoft_account_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at, updated_at`

	err := a.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.MicrosoftID, user.MicrosoftEmail, user.MicrosoftAccountID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return constraintError(err, core.ErrUserExists)
	}
	return nil
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, core.ErrUserNotFound
	}
	return scanUser(a.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return scanUser(a.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (a *Adapter) GetUserByMicrosoftID(ctx context.Context, microsoftID string) (*core.User, error) {
	return scanUser(a.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE microsoft_id = $1`, microsoftID))
}

func (a *Adapter) UpdateUser(ctx context.Context, user *core.User) error {
	query := `UPDATE users SET email = $1, name = $2, password_hash = $3, updated_at = now()
	          WHERE id = $4 RETURNING updated_at`

	err := a.pool.QueryRow(ctx, query, user.Email, user.Name, user.PasswordHash, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		return constraintError(notFound(err, core.ErrUserNotFound), core.ErrUserExists)
	}
	return nil
}

func (a *Adapter) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	tag, err := a.pool.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}
