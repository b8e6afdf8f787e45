package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/identity-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver   string
	Postgres PostgresConfig
	SQLite   SQLiteConfig
	Pool     PoolConfig
}

// PoolConfig sizes the database/sql pool. Zero values keep driver defaults.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the configured backend. The caller owns the handle and
// must release it with Close.
func Open(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	if log == nil {
		log = logger.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverPostgres
	}
	log = log.With("driver", driver)

	var (
		dialector gorm.Dialector
		err       error
	)
	switch driver {
	case DriverPostgres:
		dialector = postgresDialector(log, cfg.Postgres)
	case DriverSQLite:
		dialector, err = sqliteDialector(log, cfg.SQLite)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(log),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := applyPool(gdb, cfg.Pool); err != nil {
		_ = Close(gdb)
		return nil, err
	}
	return gdb, nil
}

func applyPool(gdb *gorm.DB, pool PoolConfig) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("underlying sql.DB: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func IsPostgres(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == DriverPostgres
}
