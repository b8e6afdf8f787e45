package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/identity-backend/internal/data/aggregates"
	"github.com/yungbote/identity-backend/internal/platform/dbctx"
)

// errInjectedCommit rolls the inner transaction back after the body succeeded.
var errInjectedCommit = errors.New("injected commit failure")

// InjectedTxRunner wraps another runner and fails chosen transactions.
// With no Inner runner the body runs outside any transaction.
type InjectedTxRunner struct {
	Inner aggregates.TxRunner

	// FailBegin fails every transaction before the body runs.
	FailBegin error
	// FailCommit fails every transaction after the body succeeded; the
	// body's writes are rolled back.
	FailCommit error
	// FailAttempts fails the first N transactions with FailWith before the
	// body runs, then lets the rest through.
	FailAttempts int
	FailWith     error

	mu        sync.Mutex
	calls     int
	commits   int
	rollbacks int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.calls++
	early := r.FailBegin
	if early == nil && r.calls <= r.FailAttempts {
		early = r.FailWith
	}
	failCommit := r.FailCommit
	r.mu.Unlock()

	if early != nil {
		return early
	}

	err := r.inner(ctx, func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		if failCommit != nil {
			return errInjectedCommit
		}
		return nil
	})
	if errors.Is(err, errInjectedCommit) {
		err = failCommit
	}

	r.mu.Lock()
	if err != nil {
		r.rollbacks++
	} else {
		r.commits++
	}
	r.mu.Unlock()
	return err
}

func (r *InjectedTxRunner) inner(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if r.Inner == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return r.Inner.InTx(ctx, fn)
}

// Counts returns how many transactions were started, committed and rolled
// back. Early failures count as started only.
func (r *InjectedTxRunner) Counts() (calls, commits, rollbacks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.commits, r.rollbacks
}
