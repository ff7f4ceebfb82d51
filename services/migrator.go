package services

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/logging"
)

// Migrator applies an ordered migration list against a ledger. Already
// applied versions are skipped. The run stops at the first failed
// migration; the ones before it stay applied.
type Migrator struct {
	storage    core.MigrationStorage
	migrations []core.Migration
}

func NewMigrator(storage core.MigrationStorage, migrations []core.Migration) (*Migrator, error) {
	for i := range migrations {
		if migrations[i].Version <= 0 {
			return nil, goerr.Wrap(core.ErrMigrationOrder, "versions start at 1", goerr.V("migration", migrations[i].String()))
		}
		if i > 0 && migrations[i].Version <= migrations[i-1].Version {
			return nil, goerr.Wrap(core.ErrMigrationOrder, "out of order",
				goerr.V("previous", migrations[i-1].String()),
				goerr.V("migration", migrations[i].String()))
		}
	}
	return &Migrator{storage: storage, migrations: migrations}, nil
}

// Pending lists migrations not yet in the ledger, in order.
func (m *Migrator) Pending(ctx context.Context) ([]core.Migration, error) {
	if err := m.storage.EnsureLedger(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to create migration ledger")
	}
	applied, err := m.storage.AppliedVersions(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read migration ledger")
	}

	pending := make([]core.Migration, 0, len(m.migrations))
	for _, mig := range m.migrations {
		if !applied[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Run applies every pending migration and returns one result per attempt.
// A failed migration stays pending and ends the run.
func (m *Migrator) Run(ctx context.Context) ([]core.MigrationResult, error) {
	logger := logging.From(ctx)

	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]core.MigrationResult, 0, len(pending))
	for _, mig := range pending {
		result := m.storage.ApplyMigration(ctx, mig)
		results = append(results, result)

		switch result.Outcome {
		case core.MigrationCreated:
			logger.Info("migration applied", "migration", mig.String())

		case core.MigrationAlreadyExists:
			logger.Info("migration objects already present", "migration", mig.String())

		default:
			logger.Error("migration failed", "migration", mig.String(), "error", result.Err)
			return results, goerr.Wrap(core.ErrMigrationFailed, "migration failed",
				goerr.V("migration", mig.String()),
				goerr.V("cause", errString(result.Err)))
		}
	}

	if len(results) == 0 {
		logger.Info("schema is up to date")
	}
	return results, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
