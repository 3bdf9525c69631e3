package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorKind is the user-facing category of a failed call.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication" // missing/invalid/expired token: reset session, no retry
	KindAuthorization  ErrorKind = "authorization"  // valid session, plan or credits insufficient: "upgrade required"
	KindValidation     ErrorKind = "validation"     // bad input, shown inline
	KindTransient      ErrorKind = "transient"      // network or 5xx: retry manually or via bounded retry
	KindUnknown        ErrorKind = "unknown"
)

// Error wraps a failed API call with its classification.
type Error struct {
	Method     string
	Path       string
	Status     int    // 0 when the request never got a response
	Message    string // server "error"/"message" field, surfaced verbatim
	Kind       ErrorKind
	RetryAfter string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrMalformedResponse is returned when a 2xx body cannot be decoded or fails
// schema validation.
var ErrMalformedResponse = errors.New("malformed response")

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden || status == http.StatusPaymentRequired:
		return KindAuthorization
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity ||
		status == http.StatusConflict || status == http.StatusNotFound:
		return KindValidation
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return KindTransient
	default:
		return KindUnknown
	}
}

// ClassifyError returns the kind of any error produced by the client.
// Transport failures (timeouts, refused connections, DNS) count as transient.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "eof") {
		return KindTransient
	}
	return KindUnknown
}

// IsAuthentication reports whether err means the session is no longer valid.
func IsAuthentication(err error) bool {
	return ClassifyError(err) == KindAuthentication
}

// IsUpgradeRequired reports whether err should be shown as an upgrade prompt.
func IsUpgradeRequired(err error) bool {
	return ClassifyError(err) == KindAuthorization
}

// IsTransient reports whether a manual or bounded retry makes sense.
func IsTransient(err error) bool {
	return ClassifyError(err) == KindTransient
}

// retryAfter parses a Retry-After header value (seconds or HTTP date).
func retryAfter(e *Error) time.Duration {
	if e == nil || e.RetryAfter == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(e.RetryAfter)); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(e.RetryAfter); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Message returns the text to show the user for err.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Kind == KindAuthorization && apiErr.Message == "":
			return "Upgrade required: your plan or credits do not cover this action."
		case apiErr.Kind == KindAuthentication && apiErr.Message == "":
			return "Your session has expired. Please log in again."
		}
		return apiErr.Error()
	}
	if errors.Is(err, ErrMalformedResponse) {
		return "The server returned an unexpected response."
	}
	return err.Error()
}
