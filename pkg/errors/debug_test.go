package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpNamesLedgerGuard(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		guard      string
	}{
		{
			name:       "pgx check",
			err:        Wrap(CodeInternal, &pgconn.PgError{Code: "23514", ConstraintName: "users_points_non_negative"}, "debit balance"),
			constraint: "users_points_non_negative",
			guard:      "balance_non_negative",
		},
		{
			name:       "pq check",
			err:        fmt.Errorf("award: %w", &pq.Error{Code: "23514", Constraint: "events_budget_balanced"}),
			constraint: "events_budget_balanced",
			guard:      "event_budget_balanced",
		},
		{
			name:       "sqlite check",
			err:        Wrap(CodeInternal, stdErrors.New("CHECK constraint failed: events_points_remain_non_negative"), "consume event budget"),
			constraint: "events_points_remain_non_negative",
			guard:      "event_budget_non_negative",
		},
		{
			name:       "sqlite unique",
			err:        stdErrors.New("UNIQUE constraint failed: users.utorid"),
			constraint: "users_utorid_key",
			guard:      "unique_utorid",
		},
		{
			name: "unrelated",
			err:  stdErrors.New("connection reset"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Dump(tc.err)
			if d.PGConstraint != tc.constraint {
				t.Fatalf("constraint: want %q, got %q", tc.constraint, d.PGConstraint)
			}
			if d.LedgerGuard != tc.guard {
				t.Fatalf("guard: want %q, got %q", tc.guard, d.LedgerGuard)
			}
		})
	}
}

func TestDumpKeepsChainAndCode(t *testing.T) {
	d := Dump(Wrap(CodeDependency, stdErrors.New("redis down"), "store reset token"))
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two links, got %v", d.Chain)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatal("nil error should dump empty")
	}
}
