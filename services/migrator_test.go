package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/lborres/kontak/core"
)

func testMigrations() []core.Migration {
	return []core.Migration{
		{Version: 1, Name: "users", Statements: []string{"CREATE TABLE users ()"}},
		{Version: 2, Name: "sessions", Statements: []string{"CREATE TABLE sessions ()"}},
		{Version: 3, Name: "crm", Statements: []string{
			"CREATE TABLE IF NOT EXISTS crm_companies ()",
			"CREATE INDEX IF NOT EXISTS crm_companies_name ON crm_companies (name)",
		}},
	}
}

// Requirement: migrations must be strictly increasing.
func TestNewMigrator_Order(t *testing.T) {
	tests := []struct {
		name       string
		migrations []core.Migration
		wantErr    bool
	}{
		{name: "accepts increasing versions", migrations: testMigrations()},
		{name: "rejects duplicates", migrations: []core.Migration{{Version: 1}, {Version: 1}}, wantErr: true},
		{name: "rejects decreasing", migrations: []core.Migration{{Version: 2}, {Version: 1}}, wantErr: true},
		{name: "rejects zero", migrations: []core.Migration{{Version: 0}}, wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			_, err := NewMigrator(NewFakeMigrationStorage(), test.migrations)

			// Assert
			if test.wantErr != errors.Is(err, core.ErrMigrationOrder) {
				t.Errorf("NewMigrator() error = %v, wantErr %v", err, test.wantErr)
			}
		})
	}
}

// Requirement: Run applies pending migrations in order, completes partly
// present ones and stops at the first failure, which stays pending.
func TestMigrator_Run(t *testing.T) {
	crm := testMigrations()[2]

	tests := []struct {
		name         string
		applied      []int
		present      []string
		failing      []int
		wantAttempts []int
		wantOutcomes []core.MigrationOutcome
		wantApplied  []int
		wantErr      error
	}{
		{
			name:         "applies everything on an empty ledger",
			wantAttempts: []int{1, 2, 3},
			wantOutcomes: []core.MigrationOutcome{core.MigrationCreated, core.MigrationCreated, core.MigrationCreated},
			wantApplied:  []int{1, 2, 3},
		},
		{
			name:         "skips applied versions",
			applied:      []int{1, 2},
			wantAttempts: []int{3},
			wantOutcomes: []core.MigrationOutcome{core.MigrationCreated},
			wantApplied:  []int{1, 2, 3},
		},
		{
			name:         "reports fully present objects as already existing",
			applied:      []int{1, 2},
			present:      crm.Statements,
			wantAttempts: []int{3},
			wantOutcomes: []core.MigrationOutcome{core.MigrationAlreadyExists},
			wantApplied:  []int{1, 2, 3},
		},
		{
			name:         "completes a partly present migration",
			applied:      []int{1, 2},
			present:      crm.Statements[:1],
			wantAttempts: []int{3},
			wantOutcomes: []core.MigrationOutcome{core.MigrationCreated},
			wantApplied:  []int{1, 2, 3},
		},
		{
			name:         "stops at the first failure",
			failing:      []int{2},
			wantAttempts: []int{1, 2},
			wantOutcomes: []core.MigrationOutcome{core.MigrationCreated, core.MigrationFailed},
			wantApplied:  []int{1},
			wantErr:      core.ErrMigrationFailed,
		},
		{
			name:        "does nothing when up to date",
			applied:     []int{1, 2, 3},
			wantApplied: []int{1, 2, 3},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeMigrationStorage()
			for _, v := range test.applied {
				storage.applied[v] = true
			}
			for _, stmt := range test.present {
				storage.present[stmt] = true
			}
			for _, v := range test.failing {
				storage.failing[v] = true
			}
			migrator, err := NewMigrator(storage, testMigrations())
			if err != nil {
				t.Fatalf("NewMigrator() error = %v", err)
			}

			// Act
			results, err := migrator.Run(context.Background())

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("Run() error = %v, want %v", err, test.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Run() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(storage.attempts, test.wantAttempts) {
				t.Errorf("attempts = %v, want %v", storage.attempts, test.wantAttempts)
			}
			var outcomes []core.MigrationOutcome
			for _, r := range results {
				outcomes = append(outcomes, r.Outcome)
			}
			if !reflect.DeepEqual(outcomes, test.wantOutcomes) {
				t.Errorf("outcomes = %v, want %v", outcomes, test.wantOutcomes)
			}
			for _, v := range []int{1, 2, 3} {
				want := false
				for _, a := range test.wantApplied {
					want = want || a == v
				}
				if storage.applied[v] != want {
					t.Errorf("applied[%d] = %v, want %v", v, storage.applied[v], want)
				}
			}
			if n := len(test.wantAttempts); n > 0 && test.wantAttempts[n-1] == crm.Version {
				for _, stmt := range crm.Statements {
					if !storage.present[stmt] {
						t.Errorf("statement %q not present after Run()", stmt)
					}
				}
			}
		})
	}
}

// Requirement: Pending lists what Run would apply, without applying it.
func TestMigrator_Pending(t *testing.T) {
	// Arrange
	storage := NewFakeMigrationStorage()
	storage.applied[1] = true
	migrator, _ := NewMigrator(storage, testMigrations())

	// Act
	pending, err := migrator.Pending(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 2 || pending[0].Version != 2 || pending[1].Version != 3 {
		t.Errorf("pending = %v", pending)
	}
	if len(storage.attempts) != 0 {
		t.Error("Pending() must not apply migrations")
	}
}
