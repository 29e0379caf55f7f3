package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"voicechat/internal/domain"
)

type ErrorCode string

const (
	ErrorInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorBusy              ErrorCode = "BUSY"
	ErrorNetwork           ErrorCode = "NETWORK_ERROR"
	ErrorAuth              ErrorCode = "AUTH_ERROR"
	ErrorRateLimited       ErrorCode = "RATE_LIMITED"
	ErrorMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	ErrorUpstream          ErrorCode = "UPSTREAM_ERROR"
	ErrorCanceled          ErrorCode = "CANCELED"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message is the user-facing failure reason shown in notifications.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// ErrorCodeOf returns the code carried by err, or "" when err is not a
// *Error.
func ErrorCodeOf(err error) ErrorCode {
	var usecaseErr *Error
	if !errors.As(err, &usecaseErr) {
		return ""
	}
	return usecaseErr.Code
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

// classifyCompletionError maps a completer failure onto the error taxonomy.
// prefix namespaces the reason, e.g. "bootstrap" or "submit". A failure is
// CANCELED only when ctx itself is done; a context error surfacing from a
// live request (e.g. a stale key lookup) is a network failure.
func classifyCompletionError(ctx context.Context, prefix string, err error) *Error {
	switch {
	case ctx.Err() != nil:
		return newError(ErrorCanceled, prefix+"_canceled", err)
	case errors.Is(err, domain.ErrMalformedResponse):
		return newError(ErrorMalformedResponse, prefix+"_malformed_response", err)
	}
	status, ok := upstreamStatusCode(err)
	if !ok {
		return newError(ErrorNetwork, prefix+"_network_error", err)
	}
	switch status {
	case http.StatusTooManyRequests:
		return newError(ErrorRateLimited, prefix+"_rate_limited", err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return newError(ErrorAuth, prefix+"_auth_error", err)
	default:
		return newError(ErrorUpstream, prefix+"_upstream_error", err)
	}
}

