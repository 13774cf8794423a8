// Package ratelimit implements proactive quota throttling based on the
// X-RateLimit-Remaining and X-RateLimit-Reset response headers.
// When the remaining quota on a successful response drops below the
// configured floor, the governor sleeps until the quota window resets,
// so the next call does not cross into a hard lockout.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/hubfetch/hubfetch/pkg/activity"
)

// Prometheus metrics for rate limit governance.
var (
	quotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubfetch_rate_limit_remaining",
		Help: "Remaining quota reported by the most recent successful response",
	})

	throttlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubfetch_rate_limit_throttles_total",
		Help: "Total number of proactive rate limit sleeps",
	})

	throttleSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hubfetch_rate_limit_throttle_seconds",
		Help:    "Duration of proactive rate limit sleeps",
		Buckets: []float64{2, 5, 10, 30, 60, 300, 900},
	})
)

// Quota headers on GitHub-style API responses.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// DefaultTokenFloor is the remaining-quota threshold below which the
// governor throttles proactively.
const DefaultTokenFloor = 500

// MinSleep is the floor for any proactive sleep. It guards against busy
// looping when the reset instant is in the past or malformed.
const MinSleep = 2 * time.Second

// Quota is the rate limit state parsed from one response.
type Quota struct {
	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAt is the instant the window resets.
	ResetAt time.Time
}

// ParseQuota extracts quota state from response headers.
// Returns ok=false when the remaining header is absent, which is normal
// for responses that are not subject to rate limiting.
func ParseQuota(headers http.Header) (Quota, bool, error) {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return Quota{}, false, nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return Quota{}, false, fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	var resetAt time.Time
	if resetStr := headers.Get(HeaderReset); resetStr != "" {
		resetEpoch, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return Quota{}, false, fmt.Errorf("parse %s header: %w", HeaderReset, err)
		}
		resetAt = time.Unix(resetEpoch, 0)
	}

	return Quota{Remaining: remaining, ResetAt: resetAt}, true, nil
}

// Governor decides whether to throttle after a successful response.
type Governor struct {
	// Floor is the remaining-quota threshold that triggers throttling.
	Floor int

	// Enabled gates throttling entirely. Disabled governors still parse
	// headers for metrics but never sleep or record a delay.
	Enabled bool

	// TestMode records the computed delay without performing the sleep.
	TestMode bool

	logger zerolog.Logger
	now    func() time.Time
}

// NewGovernor creates a governor with the given floor. A floor <= 0
// falls back to DefaultTokenFloor.
func NewGovernor(floor int, enabled, testMode bool, logger zerolog.Logger) *Governor {
	if floor <= 0 {
		floor = DefaultTokenFloor
	}
	return &Governor{
		Floor:    floor,
		Enabled:  enabled,
		TestMode: testMode,
		logger:   logger,
		now:      time.Now,
	}
}

// SleepFor computes the proactive sleep for the given quota:
// the time until the window resets, never less than MinSleep.
func (g *Governor) SleepFor(q Quota) time.Duration {
	toSleep := q.ResetAt.Sub(g.now())
	if toSleep < MinSleep {
		toSleep = MinSleep
	}
	return toSleep
}

// Throttle inspects the quota headers of a successful response and, if the
// remaining quota is below the floor, sleeps until the window resets.
// The computed delay is recorded on rec even when TestMode skips the sleep.
func (g *Governor) Throttle(ctx context.Context, headers http.Header, rec *activity.Record) error {
	quota, ok, err := ParseQuota(headers)
	if err != nil {
		// Unparseable quota headers never fail the response they rode in on.
		g.logger.Warn().Err(err).Msg("Ignoring malformed rate limit headers")
		return nil
	}
	if !ok {
		return nil
	}

	quotaRemaining.Set(float64(quota.Remaining))

	if !g.Enabled || quota.Remaining >= g.Floor {
		return nil
	}

	toSleep := g.SleepFor(quota)
	rec.RateLimitDelay = toSleep

	throttlesTotal.Inc()
	throttleSeconds.Observe(toSleep.Seconds())

	g.logger.Warn().
		Int("remaining", quota.Remaining).
		Int("floor", g.Floor).
		Dur("delay", toSleep).
		Time("reset_at", quota.ResetAt).
		Msg("Quota below floor - throttling before next call")

	if g.TestMode {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(toSleep):
		return nil
	}
}
