package github

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed usage fetch. The scheduler only branches on
// the kind; everything else is diagnostic payload.
type ErrorKind string

const (
	KindMissingToken       ErrorKind = "missing_token"
	KindInvalidURL         ErrorKind = "invalid_url"
	KindHTTPError          ErrorKind = "http_error"
	KindRateLimited        ErrorKind = "rate_limited"
	KindDecodingError      ErrorKind = "decoding_error"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindForbidden          ErrorKind = "forbidden"
	KindUnexpectedResponse ErrorKind = "unexpected_response"
)

// APIError is the classified error returned by the usage source.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Message    string
	// ResetAt is the server-provided rate limit reset time, when known.
	ResetAt *time.Time
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode > 0:
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s (%d)", e.Kind, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return string(e.Kind)
	}
}

// IsRateLimited reports whether err is a rate-limit classification and
// returns the reset time when the server provided one.
func IsRateLimited(err error) (*time.Time, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == KindRateLimited {
		return apiErr.ResetAt, true
	}
	return nil, false
}

// KindOf returns the classification of err, or KindUnexpectedResponse for
// errors that did not come from the client (transport failures, timeouts).
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnexpectedResponse
}
