// Package dbtest opens isolated sqlite databases migrated with the full model
// set.
package dbtest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/campuspoints-backend/pkg/db"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a fresh database named after the running test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return open(t, "file:"+name+"_"+uuid.NewString()+"?mode=memory&cache=shared", 1)
}

// OpenConcurrent returns a file-backed database that serves conns connections
// at once. Transactions begin IMMEDIATE and wait on the write lock, so
// goroutines race for real and commit one after another.
func OpenConcurrent(t testing.TB, conns int) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	return open(t, "file:"+path+"?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate", conns)
}

func open(t testing.TB, dsn string, conns int) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Client wraps Open in a db.Client so services get a real transaction runner.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.NewFromGorm(Open(t))
}

// CreateUser inserts user after filling the required columns a test left blank.
func CreateUser(t testing.TB, conn *gorm.DB, user models.User) *models.User {
	t.Helper()
	if user.Utorid == "" {
		user.Utorid = "user" + uuid.NewString()[:4]
	}
	if user.Name == "" {
		user.Name = user.Utorid
	}
	if user.Email == "" {
		user.Email = user.Utorid + "@mail.utoronto.ca"
	}
	if user.Role == "" {
		user.Role = enums.RoleRegular
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", user.Utorid, err)
	}
	return &user
}

// Points reloads the balance for userID.
func Points(t testing.TB, conn *gorm.DB, userID uuid.UUID) int {
	t.Helper()
	var user models.User
	if err := conn.Select("id", "points").Where("id = ?", userID).First(&user).Error; err != nil {
		t.Fatalf("load user %s: %v", userID, err)
	}
	return user.Points
}
