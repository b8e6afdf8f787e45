package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
)

func TestFromAggregate(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		code      string
		message   string
		retryable bool
	}{
		{"validation", domainagg.NewError(domainagg.CodeValidation, "op", "email or phoneNumber is required", nil), http.StatusBadRequest, "validation", "email or phoneNumber is required", false},
		{"not found", domainagg.NewError(domainagg.CodeNotFound, "op", "contact not found: 9", nil), http.StatusNotFound, "not_found", "contact not found: 9", false},
		{"conflict", domainagg.NewError(domainagg.CodeConflict, "op", "demotion lost", nil), http.StatusConflict, "conflict", "demotion lost", true},
		{"retryable wrapped", fmt.Errorf("service: %w", domainagg.NewError(domainagg.CodeRetryable, "op", "serialization failure", nil)), http.StatusConflict, "retryable", "serialization failure", true},
		{"invariant hides detail", domainagg.NewError(domainagg.CodeInvariantViolation, "op", "secondary 4 links to secondary 2", nil), http.StatusInternalServerError, "invariant_violation", "internal error", false},
		{"plain error", context.Canceled, http.StatusInternalServerError, "internal", "internal error", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromAggregate(tc.err)
			if got.Status != tc.status {
				t.Fatalf("status: want=%d got=%d", tc.status, got.Status)
			}
			if got.Code != tc.code {
				t.Fatalf("code: want=%q got=%q", tc.code, got.Code)
			}
			if got.Message != tc.message {
				t.Fatalf("message: want=%q got=%q", tc.message, got.Message)
			}
			if got.Retryable() != tc.retryable {
				t.Fatalf("retryable: want=%v got=%v", tc.retryable, got.Retryable())
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("expected cause to be preserved")
			}
		})
	}
}

func TestFromAggregatePassesAPIErrorsThrough(t *testing.T) {
	in := New(http.StatusBadRequest, "validation", errors.New("bad id"))
	if got := FromAggregate(fmt.Errorf("wrap: %w", in)); got != in {
		t.Fatalf("expected the wrapped api error back")
	}
}
