package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yungbote/identity-backend/internal/data/db"
	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/observability"
)

type Config struct {
	Env     string
	LogMode string

	HTTP    HTTPConfig
	DB      db.Config
	Redis   RedisConfig
	Metrics MetricsConfig
	Otel    OtelConfig

	// LockTimeout bounds how long a reconciliation waits on row locks (Postgres only).
	LockTimeout time.Duration

	SecondaryFields domainagg.SecondaryFieldPolicy
	MaxAttempts     int
	RetryBackoff    time.Duration
}

type HTTPConfig struct {
	Addr              string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	CORSOrigins       []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
	LockWait time.Duration
}

type OtelConfig struct {
	Exporter    string
	SampleRatio float64
	Endpoint    string
	Headers     map[string]string
	Insecure    bool
}

type MetricsConfig struct {
	// Addr serves /metrics on a dedicated listener when set.
	Addr          string
	RedisInterval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log.mode", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.read_header_timeout", "5s")
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("db.driver", db.DriverSQLite)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.lock_timeout", "3s")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "5m")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.name", "identity")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("sqlite.path", "identity.db")
	v.SetDefault("sqlite.busy_timeout", "5s")
	v.SetDefault("identity.secondary_fields", string(domainagg.SecondaryFieldsCopyBoth))
	v.SetDefault("identity.max_attempts", 3)
	v.SetDefault("identity.retry_backoff", "25ms")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "5s")
	v.SetDefault("redis.lock_wait", "2s")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.redis_interval", "15s")
	v.SetDefault("otel.exporter", observability.ExporterNone)
	v.SetDefault("otel.sample_ratio", 0.1)
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.headers", "")
	v.SetDefault("otel.insecure", false)
}

// NewViper returns a viper instance bound to the environment, with .env
// files loaded first. A missing .env is not an error.
func NewViper() *viper.Viper {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// standard OTel variable names take part alongside OTEL_ENDPOINT etc.
	_ = v.BindEnv("otel.endpoint", "OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("otel.headers", "OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	_ = v.BindEnv("otel.insecure", "OTEL_INSECURE", "OTEL_EXPORTER_OTLP_INSECURE")
	setDefaults(v)
	return v
}

// LoadConfig reads an optional YAML file into v and builds a Config from it.
func LoadConfig(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	policy, ok := domainagg.ParseSecondaryFieldPolicy(strings.TrimSpace(v.GetString("identity.secondary_fields")))
	if !ok {
		return Config{}, fmt.Errorf("identity.secondary_fields: unknown policy %q", v.GetString("identity.secondary_fields"))
	}

	cfg := Config{
		Env:     v.GetString("env"),
		LogMode: v.GetString("log.mode"),
		HTTP: HTTPConfig{
			Addr:              v.GetString("http.addr"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			ReadHeaderTimeout: v.GetDuration("http.read_header_timeout"),
			CORSOrigins:       splitList(v.GetStringSlice("http.cors_origins")),
		},
		DB: db.Config{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("db.driver"))),
			Postgres: db.PostgresConfig{
				DSN:      v.GetString("db.dsn"),
				Host:     v.GetString("postgres.host"),
				Port:     v.GetString("postgres.port"),
				User:     v.GetString("postgres.user"),
				Password: v.GetString("postgres.password"),
				Name:     v.GetString("postgres.name"),
				SSLMode:  v.GetString("postgres.sslmode"),
			},
			SQLite: db.SQLiteConfig{
				Path:        v.GetString("sqlite.path"),
				BusyTimeout: v.GetDuration("sqlite.busy_timeout"),
			},
			Pool: db.PoolConfig{
				MaxOpenConns:    v.GetInt("db.max_open_conns"),
				MaxIdleConns:    v.GetInt("db.max_idle_conns"),
				ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
			},
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			LockTTL:  v.GetDuration("redis.lock_ttl"),
			LockWait: v.GetDuration("redis.lock_wait"),
		},
		Metrics: MetricsConfig{
			Addr:          v.GetString("metrics.addr"),
			RedisInterval: v.GetDuration("metrics.redis_interval"),
		},
		Otel: OtelConfig{
			Exporter:    strings.ToLower(strings.TrimSpace(v.GetString("otel.exporter"))),
			SampleRatio: v.GetFloat64("otel.sample_ratio"),
			Endpoint:    v.GetString("otel.endpoint"),
			Headers:     observability.ParseHeaders(v.GetString("otel.headers")),
			Insecure:    v.GetBool("otel.insecure"),
		},
		LockTimeout:     v.GetDuration("db.lock_timeout"),
		SecondaryFields: policy,
		MaxAttempts:     v.GetInt("identity.max_attempts"),
		RetryBackoff:    v.GetDuration("identity.retry_backoff"),
	}
	if cfg.LogMode == "" {
		cfg.LogMode = cfg.Env
	}
	if cfg.DB.Driver != db.DriverPostgres && cfg.DB.Driver != db.DriverSQLite {
		return Config{}, fmt.Errorf("db.driver: unsupported driver %q", cfg.DB.Driver)
	}
	if cfg.MaxAttempts <= 0 {
		return Config{}, fmt.Errorf("identity.max_attempts must be positive, got %d", cfg.MaxAttempts)
	}
	return cfg, nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
