package db

import (
	"net/url"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/identity-backend/internal/platform/logger"
)

// PostgresConfig holds either a full DSN or its parts. DSN wins when set.
type PostgresConfig struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c PostgresConfig) dsn() string {
	if strings.TrimSpace(c.DSN) != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u.RawQuery = url.Values{"sslmode": {sslMode}}.Encode()
	return u.String()
}

func postgresDialector(log *logger.Logger, cfg PostgresConfig) gorm.Dialector {
	log.Info("connecting to postgres", "host", cfg.Host, "name", cfg.Name, "dsn", cfg.DSN)
	return postgres.Open(cfg.dsn())
}
