package relay

import (
	"errors"
	"fmt"
	"net/http"

	"bootcamp-tutor/internal/integrations/openai"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorRateLimited  ErrorCode = "RATE_LIMITED"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error is returned synchronously by Service.Open, before any byte of the
// response has been produced.
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
		return fmt.Sprintf("relay: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("relay: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
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

// classifyOpenError maps a failure to start the upstream stream onto an Error.
// A 400 from the provider means the forwarded messages were rejected, which is
// the caller's input problem rather than ours.
func classifyOpenError(err error) *Error {
	if errors.Is(err, openai.ErrCredentials) {
		return newError(ErrorInternal, "credential_error", err)
	}
	status, ok := upstreamStatusCode(err)
	switch {
	case !ok:
		return newError(ErrorUpstream, "upstream_unreachable", err)
	case status == http.StatusTooManyRequests:
		return newError(ErrorRateLimited, "upstream_rate_limited", err)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return newError(ErrorInvalidInput, "upstream_rejected", err)
	default:
		return newError(ErrorUpstream, "upstream_error", err)
	}
}
