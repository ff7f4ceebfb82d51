package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
)

const createLedger = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    integer PRIMARY KEY,
	name       text NOT NULL,
	applied_at timestamptz NOT NULL DEFAULT now()
)`

func (a *Adapter) EnsureLedger(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, createLedger)
	return err
}

func (a *Adapter) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := a.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, err
	}

	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// schemaObjects counts the relations, columns and constraints in the
// current schema. Comparing it before and after a migration tells whether
// the migration created anything.
const schemaObjects = `SELECT
	(SELECT count(*) FROM pg_catalog.pg_class c
	  WHERE c.relnamespace = current_schema()::regnamespace)
	+ (SELECT count(*) FROM pg_catalog.pg_attribute a
	  JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
	  WHERE c.relnamespace = current_schema()::regnamespace AND a.attnum > 0 AND NOT a.attisdropped)
	+ (SELECT count(*) FROM pg_catalog.pg_constraint k
	  WHERE k.connamespace = current_schema()::regnamespace)`

func countSchemaObjects(ctx context.Context, tx pgx.Tx) (int64, error) {
	var n int64
	if err := tx.QueryRow(ctx, schemaObjects).Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "failed to read schema catalog")
	}
	return n, nil
}

// ApplyMigration runs m and its ledger row in one transaction. The outcome
// is MigrationCreated when the schema gained objects and
// MigrationAlreadyExists when every object was already there; both are
// recorded. Any statement error rolls everything back and nothing is
// recorded.
func (a *Adapter) ApplyMigration(ctx context.Context, m core.Migration) core.MigrationResult {
	result := core.MigrationResult{Migration: m, Outcome: core.MigrationFailed}

	var created bool
	err := pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		before, err := countSchemaObjects(ctx, tx)
		if err != nil {
			return err
		}
		for i, stmt := range m.Statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return goerr.Wrap(err, "statement failed",
					goerr.V("migration", m.String()),
					goerr.V("statement", i),
					goerr.V("duplicate_object", alreadyExists(err)))
			}
		}
		after, err := countSchemaObjects(ctx, tx)
		if err != nil {
			return err
		}
		created = after != before
		return recordMigration(ctx, tx, m)
	})

	switch {
	case err != nil:
		result.Err = err
	case created:
		result.Outcome = core.MigrationCreated
	default:
		result.Outcome = core.MigrationAlreadyExists
	}
	return result
}

func recordMigration(ctx context.Context, tx pgx.Tx, m core.Migration) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2) ON CONFLICT (version) DO NOTHING`,
		m.Version, m.Name)
	return err
}
