package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yungbote/identity-backend/internal/platform/ctxutil"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
	scrub         *scrubber
}

// Options controls how contact values and secrets reach the log.
type Options struct {
	// Redact hashes email and phone values and hides secrets. On by default.
	Redact   bool
	HashSalt string
}

// OptionsFromEnv reads LOG_REDACTION_ENABLED and LOG_HASH_SALT.
func OptionsFromEnv() Options {
	opts := Options{Redact: true, HashSalt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
	switch strings.TrimSpace(strings.ToLower(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		opts.Redact = false
	}
	return opts
}

// New builds a zap logger for mode: production logs JSON at info, test logs
// warnings only, anything else is a colored development console.
func New(mode string) (*Logger, error) {
	return NewWithOptions(mode, OptionsFromEnv())
}

func NewWithOptions(mode string, opts Options) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{SugaredLogger: z.Sugar(), scrub: newScrubber(opts)}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), scrub: newScrubber(Options{})}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.SugaredLogger.Debugw(msg, l.scrub.kvs(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.SugaredLogger.Infow(msg, l.scrub.kvs(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.SugaredLogger.Warnw(msg, l.scrub.kvs(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.SugaredLogger.Errorw(msg, l.scrub.kvs(kv)...) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.SugaredLogger.Fatalw(msg, l.scrub.kvs(kv)...) }

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.scrub.kvs(kv)...), scrub: l.scrub}
}

// Ctx returns a child logger carrying the request and trace ids found in ctx.
func (l *Logger) Ctx(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var kv []interface{}
	if id := ctxutil.RequestID(ctx); id != "" {
		kv = append(kv, "request_id", id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		kv = append(kv, "trace_id", sc.TraceID().String())
	}
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}

type scrubber struct {
	on   bool
	salt string
}

func newScrubber(opts Options) *scrubber {
	return &scrubber{on: opts.Redact, salt: opts.HashSalt}
}

func (s *scrubber) kvs(kv []interface{}) []interface{} {
	if s == nil || !s.on || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		out[i+1] = s.value(keyClass(toString(out[i])), out[i+1])
	}
	return out
}

type class int

const (
	classPlain class = iota
	classSecret
	classContact
)

func keyClass(key string) class {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, frag := range []string{"token", "authorization", "password", "secret", "dsn"} {
		if strings.Contains(key, frag) {
			return classSecret
		}
	}
	if strings.Contains(key, "email") || strings.Contains(key, "phone") {
		return classContact
	}
	return classPlain
}

func (s *scrubber) value(c class, val interface{}) interface{} {
	switch c {
	case classSecret:
		return "[REDACTED]"
	case classContact:
		return s.hash(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = s.value(keyClass(k), inner)
		}
		return out
	case []string:
		return v
	default:
		return val
	}
}

// hash keeps contact values correlatable across lines without logging them.
func (s *scrubber) hash(val interface{}) interface{} {
	if list, ok := val.([]string); ok {
		out := make([]string, len(list))
		for i, v := range list {
			out[i] = s.hashString(v)
		}
		return out
	}
	return s.hashString(toString(val))
}

func (s *scrubber) hashString(raw string) string {
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
