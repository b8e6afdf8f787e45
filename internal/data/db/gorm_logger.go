package db

import (
	"fmt"
	"time"

	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/identity-backend/internal/platform/logger"
)

// gormWriter sends gorm's printf-style output to the service logger.
type gormWriter struct{ log *logger.Logger }

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn("gorm", "detail", fmt.Sprintf(format, args...))
}

func newGormLogger(log *logger.Logger) gormLogger.Interface {
	return gormLogger.New(gormWriter{log: log.With("component", "gorm")}, gormLogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormLogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
}
