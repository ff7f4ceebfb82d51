package pgx

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/kontak/core"
)

const documentColumns = `id, file_name, file_type, file_size, external_file_id, external_url, share_url, site_id, folder_path, uploaded_by, contact_id, company_id, created_at`

func scanDocument(row pgx.Row) (*core.Document, error) {
	d := &core.Document{}
	err := row.Scan(&d.ID, &d.FileName, &d.FileType, &d.FileSize, &d.ExternalFileID, &d.ExternalURL, &d.ShareURL,
		&d.SiteID, &d.FolderPath, &d.UploadedBy, &d.ContactID, &d.CompanyID, &d.CreatedAt)
	if err != nil {
		return nil, notFound(err, core.ErrDocumentNotFound)
	}
	return d, nil
}

// CreateDocument records a file uploaded to the team drive.
func (a *Adapter) CreateDocument(ctx context.Context, d *core.Document) error {
	d.ID = uuid.NewString()

	query := `INSERT INTO microsoft_documents (id, file_name, file_type, file_size, external_file_id, external_url, share_url, site_id, folder_path, uploaded_by, contact_id, company_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING created_at`

	err := a.pool.QueryRow(ctx, query,
		d.ID, d.FileName, d.FileType, d.FileSize, d.ExternalFileID, d.ExternalURL, d.ShareURL,
		d.SiteID, d.FolderPath, d.UploadedBy, d.ContactID, d.CompanyID,
	).Scan(&d.CreatedAt)
	return constraintError(err, core.ErrConflict)
}

func (a *Adapter) ListContactDocuments(ctx context.Context, contactID string) ([]*core.Document, error) {
	if !validID(contactID) {
		return []*core.Document{}, nil
	}
	rows, err := a.pool.Query(ctx, `SELECT `+documentColumns+` FROM microsoft_documents WHERE contact_id = $1 ORDER BY created_at DESC`, contactID)
	return collect(rows, err, scanDocument)
}
