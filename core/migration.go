package core

import "fmt"

// MigrationOutcome is the result of applying one migration. Storage
// adapters report it so the runner never inspects database-specific codes.
// Created and AlreadyExists are both applied; AlreadyExists means every
// object of the migration was already present.
type MigrationOutcome int

const (
	MigrationFailed MigrationOutcome = iota
	MigrationCreated
	MigrationAlreadyExists
)

func (o MigrationOutcome) String() string {
	switch o {
	case MigrationCreated:
		return "created"
	case MigrationAlreadyExists:
		return "already_exists"
	default:
		return "failed"
	}
}

// Migration is one ordered schema step. Statements run in a single transaction.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

func (m Migration) String() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

type MigrationResult struct {
	Migration Migration
	Outcome   MigrationOutcome
	Err       error
}
