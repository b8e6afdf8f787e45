package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/identity-backend/internal/platform/dbctx"
)

type countingRunner struct{ calls int }

func (c *countingRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	c.calls++
	return fn(dbctx.Context{Ctx: ctx})
}

func assertCounts(t *testing.T, r *InjectedTxRunner, calls, commits, rollbacks int) {
	t.Helper()
	c, cm, rb := r.Counts()
	if c != calls || cm != commits || rb != rollbacks {
		t.Fatalf("counts: want calls=%d commits=%d rollbacks=%d got %d/%d/%d", calls, commits, rollbacks, c, cm, rb)
	}
}

func TestInjectedTxRunnerDelegatesToInner(t *testing.T) {
	inner := &countingRunner{}
	r := &InjectedTxRunner{Inner: inner}
	ran := false
	if err := r.InTx(context.Background(), func(dbctx.Context) error { ran = true; return nil }); err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if !ran || inner.calls != 1 {
		t.Fatalf("ran=%v inner calls=%d", ran, inner.calls)
	}
	assertCounts(t, r, 1, 1, 0)
}

func TestInjectedTxRunnerBodyErrorRollsBack(t *testing.T) {
	r := &InjectedTxRunner{}
	merge := errors.New("demote primary 3: row locked")
	if err := r.InTx(context.Background(), func(dbctx.Context) error { return merge }); !errors.Is(err, merge) {
		t.Fatalf("want body error, got %v", err)
	}
	assertCounts(t, r, 1, 0, 1)
}

func TestInjectedTxRunnerFailBeginSkipsBody(t *testing.T) {
	inner := &countingRunner{}
	begin := errors.New("begin: too many connections")
	r := &InjectedTxRunner{Inner: inner, FailBegin: begin}
	err := r.InTx(context.Background(), func(dbctx.Context) error {
		t.Fatal("body must not run")
		return nil
	})
	if !errors.Is(err, begin) || inner.calls != 0 {
		t.Fatalf("err=%v inner calls=%d", err, inner.calls)
	}
	assertCounts(t, r, 1, 0, 0)
}

func TestInjectedTxRunnerFailCommitAfterBody(t *testing.T) {
	commit := errors.New("commit: serialization failure")
	r := &InjectedTxRunner{FailCommit: commit}
	ran := false
	err := r.InTx(context.Background(), func(dbctx.Context) error { ran = true; return nil })
	if !errors.Is(err, commit) || !ran {
		t.Fatalf("err=%v ran=%v", err, ran)
	}
	assertCounts(t, r, 1, 0, 1)
}

func TestInjectedTxRunnerFailAttemptsThenSucceeds(t *testing.T) {
	busy := errors.New("database is locked")
	r := &InjectedTxRunner{FailAttempts: 2, FailWith: busy}
	body := func(dbctx.Context) error { return nil }

	for i := 0; i < 2; i++ {
		if err := r.InTx(context.Background(), body); !errors.Is(err, busy) {
			t.Fatalf("attempt %d: want busy, got %v", i+1, err)
		}
	}
	if err := r.InTx(context.Background(), body); err != nil {
		t.Fatalf("attempt 3: %v", err)
	}
	assertCounts(t, r, 3, 1, 0)
}
