package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
	wrapped := fmt.Errorf("identify: %w", in)
	if MapError("other", wrapped) != wrapped {
		t.Fatalf("expected wrapped aggregate error to pass through")
	}
}

func TestMapError_StoreErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domainagg.ErrorCode
	}{
		{"pg serialization", &pgconn.PgError{Code: "40001"}, domainagg.CodeRetryable},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, domainagg.CodeRetryable},
		{"pg lock timeout", &pgconn.PgError{Code: "55P03"}, domainagg.CodeRetryable},
		{"pg unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), domainagg.CodeConflict},
		{"pg foreign key", &pgconn.PgError{Code: "23503"}, domainagg.CodePreconditionFailed},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, domainagg.CodeRetryable},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, domainagg.CodeConflict},
		{"invariant sentinel", fmt.Errorf("reconcile: %w", InvariantError("secondary chain")), domainagg.CodeInvariantViolation},
		{"sqlite locked message", errors.New("database is locked"), domainagg.CodeRetryable},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), domainagg.CodeRetryable},
		{"io", errors.New("connection refused"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := domainagg.CodeOf(MapError("op", tc.err))
			if got != tc.want {
				t.Fatalf("want=%s got=%s", tc.want, got)
			}
		})
	}
}
