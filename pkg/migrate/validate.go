package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	sqlFileRe     = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	createTableRe = regexp.MustCompile(`(?i)CREATE TABLE\s+(?:IF NOT EXISTS\s+)?"?([a-z0-9_]+)"?`)
	dropTableRe   = regexp.MustCompile(`(?i)DROP TABLE\s+(?:IF EXISTS\s+)?"?([a-z0-9_]+)"?`)
)

// LedgerTables must all be created by the migration set before the API can
// serve balances, promotions and events.
var LedgerTables = []string{
	"users",
	"promotions",
	"promotion_usages",
	"events",
	"event_organizers",
	"event_guests",
	"transactions",
	"transaction_promotions",
	"outbox_events",
	"outbox_dlq",
}

type migrationFile struct {
	version string
	name    string
	file    string
	up      string
	down    string
}

// ValidateDir checks filenames, unique versions and names, goose headers, and
// that every table a file creates is dropped again by its Down section. Each
// table in required must be created somewhere in dir.
func ValidateDir(dir string, required ...string) error {
	files, err := readMigrations(dir)
	if err != nil {
		return err
	}

	names := map[string]string{}
	created := map[string]string{}
	for _, m := range files {
		if prev, ok := names[m.name]; ok {
			return fmt.Errorf("migration name %q used by %q and %q", m.name, prev, m.file)
		}
		names[m.name] = m.file

		dropped := map[string]bool{}
		for _, match := range dropTableRe.FindAllStringSubmatch(m.down, -1) {
			dropped[strings.ToLower(match[1])] = true
		}
		for _, match := range createTableRe.FindAllStringSubmatch(m.up, -1) {
			table := strings.ToLower(match[1])
			if !dropped[table] {
				return fmt.Errorf("migration %q creates %s but its Down section never drops it", m.file, table)
			}
			created[table] = m.file
		}
	}

	var missing []string
	for _, table := range required {
		if _, ok := created[table]; !ok {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("no migration creates required tables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// readMigrations loads every .sql file in dir ordered by version.
func readMigrations(dir string) ([]migrationFile, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	versions := map[string]string{}
	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		file := e.Name()
		m := sqlFileRe.FindStringSubmatch(file)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", file)
		}
		if prev, ok := versions[m[1]]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, file)
		}
		versions[m[1]] = file

		b, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", file, err)
		}
		txt := string(b)
		upAt := strings.Index(txt, "-- +goose Up")
		downAt := strings.Index(txt, "-- +goose Down")
		switch {
		case upAt < 0:
			return nil, fmt.Errorf("migration %q missing \"-- +goose Up\"", file)
		case downAt < 0:
			return nil, fmt.Errorf("migration %q missing \"-- +goose Down\"", file)
		case downAt < upAt:
			return nil, fmt.Errorf("migration %q has Down before Up", file)
		}
		files = append(files, migrationFile{
			version: m[1],
			name:    m[2],
			file:    file,
			up:      txt[upAt:downAt],
			down:    txt[downAt:],
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}
