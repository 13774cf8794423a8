package client

import (
	"time"

	"github.com/hubfetch/hubfetch/pkg/ratelimit"
)

// Default configuration values.
const (
	// DefaultMaxAttempts is the total number of attempts per page,
	// including the first.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the flat cool-down before an ordinary retry.
	// The API's guidance is a fixed cool-down, so there is no backoff.
	DefaultRetryDelay = 1 * time.Second

	// DefaultForbiddenDelay is the cool-down after a 403 secondary
	// rate-limit lockout.
	DefaultForbiddenDelay = 3 * time.Minute
)

// Config holds the per-session fetch configuration. A Config is merged
// over DefaultConfig at session start and never mutated afterwards.
type Config struct {
	// MaxAttempts is the total attempts per page, including the first.
	MaxAttempts int

	// RetryDelay is the flat wait before an ordinary retry.
	RetryDelay time.Duration

	// ForbiddenDelay is the wait before retrying after a 403.
	ForbiddenDelay time.Duration

	// TokenFloor is the remaining-quota threshold below which the
	// session throttles proactively after a successful response.
	TokenFloor int

	// DisableThrottle turns proactive rate-limit throttling off.
	DisableThrottle bool

	// TestMode records all delays (retry, forbidden, rate limit)
	// without performing the actual sleeps. Tests use this to assert
	// the delays that would have occurred without slowing the suite.
	TestMode bool

	// ETags holds per-page If-None-Match values, indexed by the 0-based
	// page number across the whole pagination run. An empty string
	// means no conditional header for that page.
	ETags []string

	// Headers are extra request headers, merged key-by-key over the
	// built-in defaults.
	Headers map[string]string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    DefaultMaxAttempts,
		RetryDelay:     DefaultRetryDelay,
		ForbiddenDelay: DefaultForbiddenDelay,
		TokenFloor:     ratelimit.DefaultTokenFloor,
		Headers: map[string]string{
			"Accept":     "application/vnd.github+json",
			"User-Agent": "hubfetch/0.1.0",
		},
	}
}

// Merge layers overrides on top of c and returns the result.
// Zero-valued numeric fields keep c's value, booleans are OR'd, ETags
// replace wholesale when non-nil, and Headers merge key-by-key rather
// than replacing the whole map. Neither input is mutated.
func (c Config) Merge(overrides Config) Config {
	merged := c

	if overrides.MaxAttempts > 0 {
		merged.MaxAttempts = overrides.MaxAttempts
	}
	if overrides.RetryDelay > 0 {
		merged.RetryDelay = overrides.RetryDelay
	}
	if overrides.ForbiddenDelay > 0 {
		merged.ForbiddenDelay = overrides.ForbiddenDelay
	}
	if overrides.TokenFloor > 0 {
		merged.TokenFloor = overrides.TokenFloor
	}
	merged.DisableThrottle = c.DisableThrottle || overrides.DisableThrottle
	merged.TestMode = c.TestMode || overrides.TestMode

	if overrides.ETags != nil {
		merged.ETags = overrides.ETags
	}

	if len(overrides.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers)+len(overrides.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		for k, v := range overrides.Headers {
			headers[k] = v
		}
		merged.Headers = headers
	}

	return merged
}

// etagFor returns the If-None-Match value for the given 0-based page,
// or "" when none is configured.
func (c Config) etagFor(page int) string {
	if page < 0 || page >= len(c.ETags) {
		return ""
	}
	return c.ETags[page]
}
