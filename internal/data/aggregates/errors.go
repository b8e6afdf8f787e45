package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

// Sentinels joined into errors raised inside a write so MapError can
// classify them after the transaction unwinds.
var (
	ErrValidation = errors.New("identity validation")
	ErrInvariant  = errors.New("cluster invariant violation")
	ErrConflict   = errors.New("cluster changed concurrently")
	ErrRetryable  = errors.New("transient store failure")
)

// ValidationError tags an error as validation failure.
func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

// InvariantError tags an error as invariant violation.
func InvariantError(msg string) error {
	return errors.Join(ErrInvariant, errors.New(strings.TrimSpace(msg)))
}

// ConflictError tags an error as conflict failure.
func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// RetryableError tags an error as retryable failure.
func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

// MapError classifies err into an aggregate error code. Errors that already
// carry a code pass through unchanged; anything unrecognised is internal.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domainagg.As(err); ok {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

// classifiers run in order; the first match wins.
var classifiers = []func(error) (domainagg.ErrorCode, bool){
	sentinelCode,
	postgresCode,
	sqliteCode,
	messageCode,
}

func classify(err error) domainagg.ErrorCode {
	for _, c := range classifiers {
		if code, ok := c(err); ok {
			return code
		}
	}
	return domainagg.CodeInternal
}

func sentinelCode(err error) (domainagg.ErrorCode, bool) {
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.CodeValidation, true
	case errors.Is(err, ErrInvariant):
		return domainagg.CodeInvariantViolation, true
	case errors.Is(err, ErrConflict):
		return domainagg.CodeConflict, true
	case errors.Is(err, ErrRetryable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return domainagg.CodeRetryable, true
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.CodeNotFound, true
	}
	return "", false
}

func postgresCode(err error) (domainagg.ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	switch strings.TrimSpace(pgErr.Code) {
	case "23505": // unique_violation
		return domainagg.CodeConflict, true
	case "23503": // foreign_key_violation
		return domainagg.CodePreconditionFailed, true
	case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
		return domainagg.CodeRetryable, true
	}
	return "", false
}

func sqliteCode(err error) (domainagg.ErrorCode, bool) {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return "", false
	}
	switch {
	case liteErr.Code == sqlite3.ErrBusy, liteErr.Code == sqlite3.ErrLocked:
		return domainagg.CodeRetryable, true
	case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
		liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return domainagg.CodeConflict, true
	}
	return "", false
}

// messageCode covers drivers that surface errors only as text.
func messageCode(err error) (domainagg.ErrorCode, bool) {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"):
		return domainagg.CodeConflict, true
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "could not serialize"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "lock timeout"):
		return domainagg.CodeRetryable, true
	}
	return "", false
}
