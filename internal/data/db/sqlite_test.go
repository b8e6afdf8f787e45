package db

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/identity-backend/internal/platform/logger"
)

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("/tmp/contacts.db", 2*time.Second)
	if !strings.HasPrefix(dsn, "file:/tmp/contacts.db?") {
		t.Fatalf("unexpected prefix: %s", dsn)
	}
	for _, want := range []string{"_busy_timeout=2000", "_txlock=immediate", "_journal_mode=WAL"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
	if !strings.Contains(SQLiteDSN("x.db", 0), "_busy_timeout=5000") {
		t.Fatalf("default busy timeout not applied")
	}
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.db")
	gdb, err := Open(logger.Nop(), Config{Driver: DriverSQLite, SQLite: SQLiteConfig{Path: path}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = Close(gdb) })

	if IsPostgres(gdb) {
		t.Fatalf("sqlite handle reported as postgres")
	}
	if err := AutoMigrateAll(gdb); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	// idempotent
	if err := AutoMigrateAll(gdb); err != nil {
		t.Fatalf("AutoMigrateAll (second run): %v", err)
	}
	if !gdb.Migrator().HasTable("contact") || !gdb.Migrator().HasTable("contact_link_event") {
		t.Fatalf("expected contact tables to exist")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(logger.Nop(), Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "identity"}
	if got := cfg.dsn(); got != "postgres://u:p@db:5432/identity?sslmode=disable" {
		t.Fatalf("unexpected dsn: %s", got)
	}
	cfg.Password = "p@ss/word"
	if got := cfg.dsn(); !strings.Contains(got, "u:p%40ss%2Fword@db:5432") {
		t.Fatalf("password not escaped: %s", got)
	}
	cfg.DSN = "postgres://override"
	if got := cfg.dsn(); got != "postgres://override" {
		t.Fatalf("explicit dsn should win, got %s", got)
	}
}

func TestOpenAppliesPool(t *testing.T) {
	gdb, err := Open(logger.Nop(), Config{
		Driver: DriverSQLite,
		SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "pool.db")},
		Pool:   PoolConfig{MaxOpenConns: 3},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = Close(gdb) })
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 3 {
		t.Fatalf("max open: want=3 got=%d", got)
	}
}
