package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/gorm"

	appdb "github.com/yungbote/identity-backend/internal/data/db"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error
)

// Logger is the shared warn-level test logger.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() { logg, logErr = logger.New("test") })
	if logErr != nil {
		tb.Fatalf("init logger: %v", logErr)
	}
	return logg
}

// DB opens a fresh migrated SQLite file owned by the test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := appdb.Open(logger.Nop(), appdb.Config{
		Driver: appdb.DriverSQLite,
		SQLite: appdb.SQLiteConfig{Path: filepath.Join(tb.TempDir(), "identity.db")},
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = appdb.Close(db) })
	if err := appdb.AutoMigrateAll(db); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// PostgresDB returns the integration database named by TEST_POSTGRES_DSN with
// the contact tables emptied, or skips the test when it is unset.
func PostgresDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}
	pgOnce.Do(func() {
		pgDB, pgErr = appdb.Open(logger.Nop(), appdb.Config{
			Driver:   appdb.DriverPostgres,
			Postgres: appdb.PostgresConfig{DSN: dsn},
		})
		if pgErr == nil {
			pgErr = appdb.AutoMigrateAll(pgDB)
		}
	})
	if pgErr != nil {
		tb.Fatalf("init postgres: %v", pgErr)
	}
	if err := pgDB.Exec("TRUNCATE contact_link_event, contact RESTART IDENTITY").Error; err != nil {
		tb.Fatalf("truncate: %v", err)
	}
	return pgDB
}

// Tx begins a transaction that is rolled back when the test ends.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() { _ = tx.Rollback().Error })
	return tx
}
