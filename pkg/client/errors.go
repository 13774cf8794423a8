package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hubfetch/hubfetch/pkg/activity"
)

// Common errors returned by fetch sessions.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted
	// without ever receiving a response.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled
	// during a retry or throttle wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport-level errors with no response.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassForbidden represents the 403 secondary rate-limit lockout.
	ErrorClassForbidden ErrorClass = "forbidden"

	// ErrorClassClient represents other non-retryable 3xx/4xx statuses.
	ErrorClassClient ErrorClass = "client"
)

// Classify categorizes an attempt outcome for logging and metrics.
func Classify(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return ErrorClassForbidden
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// FetchError is a terminal fetch failure annotated with the activity
// accumulated up to and including the failing attempt.
type FetchError struct {
	// URL is the page URL that failed.
	URL string

	// StatusCode is the status of the triggering response, or 0 when no
	// response was ever received.
	StatusCode int

	// Class is the failure classification.
	Class ErrorClass

	// Activity is the full audit trail of the owning session.
	Activity []activity.Record

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s error (status %d): %v", e.URL, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s error: %v", e.URL, e.Class, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
