// Package client implements the single-resource fetch state machine:
// one logical GET driven through retries, forbidden cool-downs, and
// proactive rate-limit throttling, with a full per-page audit trail.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/hubfetch/hubfetch/pkg/activity"
	"github.com/hubfetch/hubfetch/pkg/logging"
	"github.com/hubfetch/hubfetch/pkg/ratelimit"
)

// Prometheus metrics for fetch sessions.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubfetch_requests_total",
		Help: "Total page fetch attempts by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hubfetch_request_duration_seconds",
		Help:    "Duration of one logical page fetch including retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 60},
	})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubfetch_retries_total",
		Help: "Total retry waits by kind",
	}, []string{"kind"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubfetch_retry_exhausted_total",
		Help: "Total pages that exhausted their attempt budget",
	}, []string{"class"})
)

// Doer is the transport collaborator. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultTransport returns the HTTP client used when none is supplied.
func DefaultTransport() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
	}
}

// Result is the envelope pairing one page response with the activity
// accumulated so far in the owning session. It is returned by value and
// never mutated after construction.
type Result struct {
	// URL is the page URL after normalization.
	URL string

	// StatusCode is the HTTP status of the settled response.
	StatusCode int

	// Header holds the response headers, including the pagination link
	// header and the rate limit quota headers.
	Header http.Header

	// Body is the raw response body.
	Body []byte

	// Activity is the audit trail of the owning session up to and
	// including this page, one record per page in fetch order.
	Activity []activity.Record
}

// Session drives single-page fetches for one logical top-level request.
// A session is single-use: it accumulates activity monotonically across
// the pages of one pagination run and is discarded with its result.
// Sessions are not safe for concurrent use.
type Session struct {
	cfg      Config
	doer     Doer
	policy   Policy
	governor *ratelimit.Governor
	logger   zerolog.Logger

	trail activity.Trail
	page  int
}

// NewSession creates a session with cfg merged over the defaults.
// A nil doer falls back to DefaultTransport.
func NewSession(cfg Config, doer Doer) *Session {
	merged := DefaultConfig().Merge(cfg)
	if doer == nil {
		doer = DefaultTransport()
	}

	logger := logging.NewLogger("fetch-session")

	return &Session{
		cfg:      merged,
		doer:     doer,
		policy:   NewFlatDelayPolicy(merged),
		governor: ratelimit.NewGovernor(merged.TokenFloor, !merged.DisableThrottle, merged.TestMode, logger),
		logger:   logger,
	}
}

// SetPolicy injects a custom retry policy. Must be called before the
// first fetch.
func (s *Session) SetPolicy(p Policy) {
	s.policy = p
}

// Config returns the merged session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Activity returns a snapshot of the audit trail accumulated so far.
func (s *Session) Activity() []activity.Record {
	return s.trail.Records()
}

// FetchPage performs one logical page fetch: a bounded loop of attempts
// through the transport, waiting out retry and forbidden delays, and
// throttling proactively after success. Non-2xx statuses that are not
// retryable (or that exhausted the attempt budget) settle as a Result,
// not an error; only transport-level exhaustion and cancelled waits
// return an error.
func (s *Session) FetchPage(ctx context.Context, pageURL string) (Result, error) {
	rec := s.trail.Begin()
	page := s.page
	s.page++

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	s.logger.Info().
		Str("url", pageURL).
		Int("page", page).
		Msg("Fetching page")

	for attempt := 1; ; attempt++ {
		resp, err := s.attempt(ctx, pageURL, page, attempt, rec)

		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body, readErr := readBody(resp)
			if readErr != nil {
				// A torn body counts as a transport failure for this attempt.
				err = readErr
				resp = nil
			} else {
				requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

				if throttleErr := s.governor.Throttle(ctx, resp.Header, rec); throttleErr != nil {
					return s.failed(pageURL, resp.StatusCode, ErrorClassNetwork,
						fmt.Errorf("%w: %v", ErrContextCancelled, throttleErr))
				}

				s.logger.Debug().
					Str("url", pageURL).
					Int("status", resp.StatusCode).
					Int("attempt", attempt).
					Msg("Page fetch succeeded")

				return s.settle(pageURL, resp, body), nil
			}
		}

		retryable := s.policy.ShouldRetry(err, resp)

		if retryable && attempt < s.cfg.MaxAttempts {
			delay, kind := s.policy.DelayFor(err, resp)
			rec.AddDelay(kind, delay)
			retriesTotal.WithLabelValues(string(kind)).Inc()

			s.logger.Warn().
				Str("url", pageURL).
				Int("attempt", attempt).
				Str("kind", string(kind)).
				Dur("delay", delay).
				Msg("Retrying page fetch after delay")

			if resp != nil {
				drainBody(resp)
			}

			if waitErr := s.wait(ctx, delay); waitErr != nil {
				return s.failed(pageURL, 0, ErrorClassNetwork, waitErr)
			}
			continue
		}

		// Terminal without a response: transport failure on the last attempt.
		if err != nil {
			class := Classify(nil, err)
			retryExhaustedTotal.WithLabelValues(string(class)).Inc()
			requestsTotal.WithLabelValues("network_error").Inc()

			s.logger.Error().
				Err(err).
				Str("url", pageURL).
				Int("attempt", attempt).
				Msg("Page fetch failed without response")

			if retryable {
				return s.failed(pageURL, 0, class, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, attempt, err))
			}
			return s.failed(pageURL, 0, class, err)
		}

		// Terminal with a response: settle it and let the caller decide.
		// This covers non-retryable 3xx/4xx and retryable statuses that
		// exhausted the attempt budget.
		body, readErr := readBody(resp)
		if readErr != nil {
			return s.failed(pageURL, resp.StatusCode, ErrorClassNetwork, readErr)
		}
		requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

		class := Classify(resp, nil)
		if retryable {
			retryExhaustedTotal.WithLabelValues(string(class)).Inc()
		}

		s.logger.Warn().
			Str("url", pageURL).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Str("class", string(class)).
			Bool("exhausted", retryable).
			Msg("Page settled with non-success status")

		return s.settle(pageURL, resp, body), nil
	}
}

// attempt issues one request through the transport and records the
// attempt count on the page's record when a response arrives.
func (s *Session) attempt(ctx context.Context, pageURL string, page, attempt int, rec *activity.Record) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}
	if etag := s.cfg.etagFor(page); etag != "" {
		req.Header.Set("If-None-Match", etag)
		s.logger.Debug().
			Str("url", pageURL).
			Str("etag", etag).
			Msg("Making conditional request")
	}

	resp, err := s.doer.Do(req)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("url", pageURL).
			Int("attempt", attempt).
			Msg("Transport error")
		return nil, err
	}

	// Attempts counts responses received; it stays zero when every
	// attempt died at the transport level.
	rec.Attempts = attempt

	return resp, nil
}

// wait sleeps for the given delay. TestMode records without sleeping;
// the delay entry was already appended by the caller.
func (s *Session) wait(ctx context.Context, delay time.Duration) error {
	if s.cfg.TestMode {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

func (s *Session) settle(pageURL string, resp *http.Response, body []byte) Result {
	return Result{
		URL:        pageURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		Activity:   s.trail.Records(),
	}
}

func (s *Session) failed(pageURL string, status int, class ErrorClass, err error) (Result, error) {
	return Result{}, &FetchError{
		URL:        pageURL,
		StatusCode: status,
		Class:      class,
		Activity:   s.trail.Records(),
		Err:        err,
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
