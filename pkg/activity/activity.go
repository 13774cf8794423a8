// Package activity provides the per-page audit trail for fetch sessions.
// Every logical page fetch produces one Record describing how many attempts
// it took, which retry or forbidden delays were incurred, and whether a
// proactive rate-limit sleep was applied before the response was handed back.
package activity

import (
	"time"
)

// DelayKind distinguishes the two classes of retry wait.
type DelayKind string

const (
	// DelayRetry is the flat cool-down applied before an ordinary retry
	// (transport error or 5xx response).
	DelayRetry DelayKind = "retry"

	// DelayForbidden is the longer cool-down applied after a 403
	// secondary rate-limit lockout.
	DelayForbidden DelayKind = "forbidden"
)

// DelayEntry records one wait incurred before a retry attempt.
type DelayEntry struct {
	Kind DelayKind     `json:"kind"`
	Wait time.Duration `json:"wait"`
}

// Record is the audit entry for one logical page fetch.
type Record struct {
	// Attempts is the number of attempts that produced a response.
	// Zero means no response was ever received (the fetch failed at the
	// transport level on every attempt).
	Attempts int `json:"attempts,omitempty"`

	// Delays lists the waits incurred before each retry, in order.
	// Empty when the first attempt settled the page.
	Delays []DelayEntry `json:"delays,omitempty"`

	// RateLimitDelay is the proactive throttle computed after a
	// successful response whose remaining quota was below the floor.
	// Zero when no throttle was applied.
	RateLimitDelay time.Duration `json:"rate_limit_delay,omitempty"`
}

// AddDelay appends one delay entry to the record.
func (r *Record) AddDelay(kind DelayKind, wait time.Duration) {
	r.Delays = append(r.Delays, DelayEntry{Kind: kind, Wait: wait})
}

// Retries returns the number of retry waits incurred for this page.
func (r *Record) Retries() int {
	return len(r.Delays)
}

// Trail is the ordered sequence of records accumulated by one session,
// one record per page in fetch order.
type Trail []*Record

// Begin starts the record for the next page and returns it.
// The returned record stays owned by the trail; callers append to it
// as attempts and delays occur.
func (t *Trail) Begin() *Record {
	rec := &Record{}
	*t = append(*t, rec)
	return rec
}

// Records returns the trail as a value slice for result envelopes.
func (t Trail) Records() []Record {
	out := make([]Record, len(t))
	for i, rec := range t {
		out[i] = *rec
	}
	return out
}
