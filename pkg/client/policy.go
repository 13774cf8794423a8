package client

import (
	"net/http"
	"time"

	"github.com/hubfetch/hubfetch/pkg/activity"
)

// Policy decides, after each attempt, whether the session may try again
// and how long to wait before the next attempt. Implementations must be
// stateless values; the session owns all mutable per-page state.
type Policy interface {
	// ShouldRetry reports whether the attempt outcome is eligible for
	// another attempt. The session separately enforces MaxAttempts.
	ShouldRetry(err error, resp *http.Response) bool

	// DelayFor returns the wait before the next attempt and the kind
	// under which it is recorded on the page's activity record.
	DelayFor(err error, resp *http.Response) (time.Duration, activity.DelayKind)
}

// FlatDelayPolicy retries transport errors, 5xx responses, and 403
// lockouts with a constant delay per kind. The API's documented guidance
// is a fixed cool-down, so there is no exponential backoff.
type FlatDelayPolicy struct {
	// RetryDelay is the wait before an ordinary retry.
	RetryDelay time.Duration

	// ForbiddenDelay is the wait after a 403 lockout.
	ForbiddenDelay time.Duration
}

// NewFlatDelayPolicy builds the default policy from a session config.
func NewFlatDelayPolicy(cfg Config) FlatDelayPolicy {
	return FlatDelayPolicy{
		RetryDelay:     cfg.RetryDelay,
		ForbiddenDelay: cfg.ForbiddenDelay,
	}
}

// ShouldRetry reports true for transport errors, 5xx, and 403.
// All other statuses are terminal: retrying a 4xx wastes quota and a
// redirect-class response will not change.
func (p FlatDelayPolicy) ShouldRetry(err error, resp *http.Response) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusForbidden
}

// DelayFor selects the forbidden cool-down whenever the triggering
// response was a 403, and the flat retry delay otherwise.
func (p FlatDelayPolicy) DelayFor(err error, resp *http.Response) (time.Duration, activity.DelayKind) {
	if err == nil && resp.StatusCode == http.StatusForbidden {
		return p.ForbiddenDelay, activity.DelayForbidden
	}
	return p.RetryDelay, activity.DelayRetry
}
