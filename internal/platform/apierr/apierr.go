package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
)

// Error is an error already resolved to its HTTP status and wire code.
type Error struct {
	Status int
	Code   string
	// Message is safe to show to clients.
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the client may resend the same request.
func (e *Error) Retryable() bool {
	return e != nil && e.Status == http.StatusConflict
}

func New(status int, code string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Status: status, Code: code, Message: msg, Err: err}
}

// StatusFor maps an aggregate error code to its HTTP status.
func StatusFor(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict, domainagg.CodeRetryable, domainagg.CodePreconditionFailed:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FromAggregate resolves err by its aggregate code. Server side failures
// never carry their cause into Message.
func FromAggregate(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	status := StatusFor(code)

	msg := "internal error"
	if aggErr, ok := domainagg.As(err); ok && status < http.StatusInternalServerError && aggErr.Message != "" {
		msg = aggErr.Message
	}
	return &Error{Status: status, Code: string(code), Message: msg, Err: err}
}
