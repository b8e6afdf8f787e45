package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/platform/dbctx"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

const statusSuccess = "success"

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// executeWrite runs fn in one transaction and reports the classified outcome.
// Whatever fn returns, the transaction is rolled back before the error leaves.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	if op = strings.TrimSpace(op); op == "" {
		op = "Contacts.write"
	}

	mapped := MapError(op, deps.Runner.InTx(ctx, fn))
	status := writeStatus(mapped)
	switch domainagg.CodeOf(mapped) {
	case domainagg.CodeConflict:
		deps.Hooks.IncConflict(op)
	case domainagg.CodeRetryable:
		deps.Hooks.IncRetry(op)
	case domainagg.CodeInvariantViolation, domainagg.CodeInternal:
		deps.Log.Error("contact write rolled back", "op", op, "code", status, "error", mapped)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

// writeStatus is the metric label for a write outcome.
func writeStatus(err error) string {
	if err == nil {
		return statusSuccess
	}
	if code := domainagg.CodeOf(MapError("", err)); code != "" {
		return string(code)
	}
	return "failure"
}
