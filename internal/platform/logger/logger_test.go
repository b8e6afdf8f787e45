package logger

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/identity-backend/internal/platform/ctxutil"
)

func observed(opts Options) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar(), scrub: newScrubber(opts)}, logs
}

func TestContactValuesAreHashed(t *testing.T) {
	l, logs := observed(Options{Redact: true})
	l.Info("identify", "email", "doc@hillvalley.edu", "phoneNumber", "555", "primary_id", int64(7))

	fields := logs.All()[0].ContextMap()
	email, _ := fields["email"].(string)
	if !strings.HasPrefix(email, "hash:") || strings.Contains(email, "doc@") {
		t.Fatalf("email not hashed: %v", fields["email"])
	}
	if phone, _ := fields["phoneNumber"].(string); !strings.HasPrefix(phone, "hash:") {
		t.Fatalf("phone not hashed: %v", fields["phoneNumber"])
	}
	if fields["primary_id"] != int64(7) {
		t.Fatalf("primary_id should pass through, got %v", fields["primary_id"])
	}
}

func TestHashIsStableAndSalted(t *testing.T) {
	plain := newScrubber(Options{Redact: true})
	salted := newScrubber(Options{Redact: true, HashSalt: "pepper"})
	if plain.hashString("dup@x.com") != plain.hashString("dup@x.com") {
		t.Fatal("hash should be stable")
	}
	if plain.hashString("dup@x.com") == salted.hashString("dup@x.com") {
		t.Fatal("salt should change the hash")
	}
}

func TestEmailListsAreHashedElementwise(t *testing.T) {
	s := newScrubber(Options{Redact: true})
	out := s.kvs([]interface{}{"emails", []string{"a@x.com", "b@x.com"}})
	list, ok := out[1].([]string)
	if !ok || len(list) != 2 || !strings.HasPrefix(list[0], "hash:") || list[0] == list[1] {
		t.Fatalf("unexpected emails: %v", out[1])
	}
}

func TestSecretsAreRedacted(t *testing.T) {
	s := newScrubber(Options{Redact: true})
	out := s.kvs([]interface{}{"db_password", "hunter2", "dsn", "postgres://u:p@h/db", "dangling"})
	if out[1] != "[REDACTED]" || out[3] != "[REDACTED]" || out[4] != "dangling" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestRedactionOff(t *testing.T) {
	s := newScrubber(Options{})
	out := s.kvs([]interface{}{"email", "a@x.com"})
	if out[1] != "a@x.com" {
		t.Fatalf("expected raw value, got %v", out[1])
	}
}

func TestCtxAddsRequestID(t *testing.T) {
	l, logs := observed(Options{Redact: true})
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{RequestID: "req-9"})
	l.Ctx(ctx).Warn("lock unavailable")
	l.Ctx(context.Background()).Warn("no ids")

	all := logs.All()
	if all[0].ContextMap()["request_id"] != "req-9" {
		t.Fatalf("missing request_id: %v", all[0].ContextMap())
	}
	if _, ok := all[1].ContextMap()["request_id"]; ok {
		t.Fatalf("unexpected request_id: %v", all[1].ContextMap())
	}
}

func TestNopLogger(t *testing.T) {
	l := Nop()
	l.Info("ignored", "email", "a@x.com")
	l.With("service", "test").Ctx(context.Background()).Debug("ignored")
}
