package db

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/identity-backend/internal/platform/logger"
)

type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// SQLiteDSN builds a go-sqlite3 DSN whose transactions take the write lock at
// BEGIN, so concurrent reconciliations serialize instead of failing mid-way.
func SQLiteDSN(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	q := url.Values{}
	q.Set("_busy_timeout", strconv.FormatInt(busyTimeout.Milliseconds(), 10))
	q.Set("_txlock", "immediate")
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	return "file:" + path + "?" + q.Encode()
}

func sqliteDialector(log *logger.Logger, cfg SQLiteConfig) (gorm.Dialector, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "identity.db"
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	log.Info("opening sqlite", "path", path)
	return sqlite.Open(SQLiteDSN(path, cfg.BusyTimeout)), nil
}
