package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/campuspoints-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations", migrate.LedgerTables...); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestUsersMigrationGuardsBalance(t *testing.T) {
	assertContains(t, readMigration(t, "create_users"), []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CONSTRAINT users_utorid_key UNIQUE (utorid)",
		"CHECK (points >= 0)",
		"DROP TABLE IF EXISTS users",
	})
}

func TestEventsMigrationKeepsBudgetBalanced(t *testing.T) {
	assertContains(t, readMigration(t, "create_events"), []string{
		"CHECK (points_remain >= 0)",
		"CHECK (points_remain + points_awarded = points)",
		"FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS event_guests",
	})
}

func TestTransactionsMigrationContainsLinks(t *testing.T) {
	assertContains(t, readMigration(t, "create_transactions"), []string{
		"CREATE TABLE IF NOT EXISTS transactions",
		"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
		"PRIMARY KEY (transaction_id, promotion_id)",
		"PRIMARY KEY (user_id, promotion_id)",
		"WHERE type = 'redemption' AND processed_by IS NULL",
	})
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Event Capacity!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_event_capacity.sql") {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected error for name that sanitizes to empty")
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func writeMigration(t *testing.T, dir, file, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestValidateDirRequiresLedgerTables(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101000000_create_users.sql",
		"-- +goose Up\nCREATE TABLE users (id uuid);\n-- +goose Down\nDROP TABLE users;\n")

	if err := migrate.ValidateDir(dir, "users"); err != nil {
		t.Fatalf("users only: %v", err)
	}
	err := migrate.ValidateDir(dir, migrate.LedgerTables...)
	if err == nil || !strings.Contains(err.Error(), "transactions") {
		t.Fatalf("expected missing transactions table, got %v", err)
	}
}

func TestValidateDirRequiresDropInDown(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101000000_create_events.sql",
		"-- +goose Up\nCREATE TABLE IF NOT EXISTS events (id uuid);\nCREATE TABLE event_guests (id uuid);\n-- +goose Down\nDROP TABLE IF EXISTS events;\n")

	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "event_guests") {
		t.Fatalf("expected undropped event_guests, got %v", err)
	}
}

func TestCreateSQLMigrationOrdersAfterNewest(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "29990101000000_future_change.sql", "-- +goose Up\n-- +goose Down\n")

	path, err := migrate.CreateSQLMigration(dir, "award cap")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "29990101000001_award_cap.sql" {
		t.Fatalf("unexpected migration path %q", path)
	}

	if _, err := migrate.CreateSQLMigration(dir, "Award Cap"); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
}
