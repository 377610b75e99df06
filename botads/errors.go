package botads

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes documented by the Client API. Values received from upstream are kept verbatim
// in ApiError.Code; these constants only name the documented ones.
const (
	CodeUnknown            = "UNKNOWN"
	CodeUnexpectedResponse = "UNEXPECTED_RESPONSE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrInvalidSignature is returned by VerifyAndParse when the body does not match its signature.
var ErrInvalidSignature = errors.New("botads: invalid webhook signature")

// ApiError is returned when the Client API answered but rejected the request, or answered
// with a body that could not be understood.
type ApiError struct {
	StatusCode int
	Code       string
	Message    string
	Details    any
}

func (e *ApiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("botads: api error %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("botads: api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsRateLimited reports whether the upstream throttled the request.
func (e *ApiError) IsRateLimited() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	switch e.Code {
	case CodeRateLimited, "rate_limited":
		return true
	}
	return false
}

// TransportError is returned when the request never completed: DNS, connection, TLS,
// timeout or context cancellation.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("botads: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the underlying failure was a timeout.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) {
		return t.Timeout()
	}
	return false
}

// ParseError is returned when a webhook body is not a valid payload.
type ParseError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "botads: invalid webhook payload"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
