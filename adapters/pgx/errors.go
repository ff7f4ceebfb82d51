package pgx

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lborres/kontak/core"
)

// SQLSTATE codes the adapter acts on.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeDuplicateTable      = "42P07"
	codeDuplicateColumn     = "42701"
	codeDuplicateObject     = "42710"
	codeDuplicateSchema     = "42P06"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// notFound maps pgx.ErrNoRows to sentinel and passes other errors through.
func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

// alreadyExists reports whether err is a duplicate-object error, i.e. a
// statement that should have been written with IF NOT EXISTS.
func alreadyExists(err error) bool {
	switch pgCode(err) {
	case codeDuplicateTable, codeDuplicateColumn, codeDuplicateObject, codeDuplicateSchema:
		return true
	}
	return false
}

// constraintError maps integrity violations onto domain errors.
func constraintError(err error, unique error) error {
	switch pgCode(err) {
	case codeUniqueViolation:
		return unique
	case codeForeignKeyViolation:
		return core.ErrNotFound
	}
	return err
}
