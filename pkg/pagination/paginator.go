// Package pagination drives fetch sessions across link-header page
// chains and flattens the resulting pages into one item sequence.
package pagination

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/hubfetch/hubfetch/pkg/activity"
	"github.com/hubfetch/hubfetch/pkg/client"
	"github.com/hubfetch/hubfetch/pkg/linkheader"
	"github.com/hubfetch/hubfetch/pkg/logging"
)

// Prometheus metrics for pagination runs.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubfetch_pages_fetched_total",
		Help: "Total pages fetched across pagination runs",
	})

	paginationStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubfetch_pagination_stops_total",
		Help: "Pagination terminations by reason",
	}, []string{"reason"})
)

// Pages is the ordered result of one pagination run: one settled
// response per page plus the session's full audit trail.
type Pages struct {
	// Results holds the page responses in fetch order.
	Results []client.Result

	// Activity has one record per page, in fetch order.
	Activity []activity.Record
}

// Paginator drives a sequence of page fetches, one per page, chained by
// the next relation of each response's link header. Like the session it
// wraps, a paginator is single-use.
type Paginator struct {
	session *client.Session
	logger  zerolog.Logger
}

// New creates a paginator with its own fetch session.
// A nil doer falls back to the default transport.
func New(cfg client.Config, doer client.Doer) *Paginator {
	return &Paginator{
		session: client.NewSession(cfg, doer),
		logger:  logging.NewLogger("paginator"),
	}
}

// Session exposes the underlying fetch session, mainly so callers can
// inject a custom retry policy before the run starts.
func (p *Paginator) Session() *client.Session {
	return p.session
}

// Run fetches pages strictly sequentially starting from startURL until
// a response lacks a next relation, a non-2xx/304 status stops the run,
// or a transport-level failure aborts it.
//
// A response with status >= 300 other than 304 is appended to the
// result and stops the run without an error: the caller may inspect the
// partial results and the failing response. A 304 is folded into the
// result like a 200; its next link, when present, is followed (in
// practice 304 responses carry no link header, so the run ends there).
// Transport failures abort with no partial result; the returned error
// carries the accumulated activity.
func (p *Paginator) Run(ctx context.Context, startURL string) (Pages, error) {
	url, err := linkheader.Normalize(startURL)
	if err != nil {
		return Pages{}, fmt.Errorf("normalize start url: %w", err)
	}

	p.logger.Info().Str("url", url).Msg("Starting pagination run")

	var results []client.Result
	for page := 0; ; page++ {
		res, err := p.session.FetchPage(ctx, url)
		if err != nil {
			paginationStopsTotal.WithLabelValues("error").Inc()
			p.logger.Error().
				Err(err).
				Int("page", page).
				Msg("Pagination aborted")
			return Pages{}, err
		}

		results = append(results, res)
		pagesFetchedTotal.Inc()

		if res.StatusCode >= 300 && res.StatusCode != http.StatusNotModified {
			paginationStopsTotal.WithLabelValues("status").Inc()
			p.logger.Warn().
				Int("page", page).
				Int("status", res.StatusCode).
				Msg("Pagination stopped on non-success status")
			break
		}

		linkValue := res.Header.Get("Link")
		if linkValue == "" {
			paginationStopsTotal.WithLabelValues("complete").Inc()
			break
		}

		links, err := linkheader.Parse(linkValue)
		if err != nil {
			paginationStopsTotal.WithLabelValues("malformed_link").Inc()
			return Pages{}, fmt.Errorf("page %d: %w", page, err)
		}

		next := links.Next()
		if next == "" {
			paginationStopsTotal.WithLabelValues("complete").Inc()
			break
		}

		p.logger.Debug().
			Int("page", page).
			Str("next", next).
			Msg("Following next link")
		url = next
	}

	trail := p.session.Activity()
	p.logger.Info().
		Int("pages", len(results)).
		Msg("Pagination run complete")

	return Pages{Results: results, Activity: trail}, nil
}
