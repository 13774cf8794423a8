// Package hubfetch fetches resources from paginated, rate-limited HTTP
// APIs modeled on GitHub's REST API. It retries transient failures,
// waits out 403 secondary lockouts, throttles proactively when the
// remaining quota runs low, follows link-header pagination, supports
// etag-conditional re-fetching, and annotates every result with a
// per-page audit trail of attempts and delays.
//
// Single fetch:
//
//	res, err := hubfetch.Fetch(ctx, "https://api.github.com/repos/o/r/issues")
//
// Full pagination with flattened items:
//
//	items, err := hubfetch.FetchAll(ctx, "https://api.github.com/repos/o/r/issues")
//
// Repeated calls share configuration through a Client:
//
//	c := hubfetch.New(client.Config{MaxAttempts: 5})
//	pages, err := c.Paginate(ctx, url)
package hubfetch

import (
	"context"

	"github.com/hubfetch/hubfetch/pkg/client"
	"github.com/hubfetch/hubfetch/pkg/linkheader"
	"github.com/hubfetch/hubfetch/pkg/pagination"
)

// Client pre-binds configuration for repeated calls. Each call still
// runs in its own single-use session, so audit trails never leak
// across logically unrelated requests.
type Client struct {
	cfg      client.Config
	doer     client.Doer
	supplier pagination.ItemSupplier
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets a custom transport collaborator.
func WithTransport(doer client.Doer) Option {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithSupplier sets the item supplier used to resolve 304 pages when
// flattening. cache.Store.Supplier provides a Redis-backed one.
func WithSupplier(supplier pagination.ItemSupplier) Option {
	return func(c *Client) {
		c.supplier = supplier
	}
}

// New creates a configured client. cfg is merged over the defaults at
// each call.
func New(cfg client.Config, opts ...Option) *Client {
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs a single-page fetch of url.
func (c *Client) Fetch(ctx context.Context, url string) (client.Result, error) {
	normalized, err := linkheader.Normalize(url)
	if err != nil {
		return client.Result{}, err
	}

	session := client.NewSession(c.cfg, c.doer)
	return session.FetchPage(ctx, normalized)
}

// Paginate fetches all pages of url and returns the raw responses.
func (c *Client) Paginate(ctx context.Context, url string) (pagination.Pages, error) {
	return pagination.New(c.cfg, c.doer).Run(ctx, url)
}

// FetchAll fetches all pages of url and returns the flattened items.
func (c *Client) FetchAll(ctx context.Context, url string) (pagination.Items, error) {
	pages, err := c.Paginate(ctx, url)
	if err != nil {
		return pagination.Items{}, err
	}
	return pagination.Flatten(ctx, pages, c.supplier)
}

// Fetch performs a single-page fetch with default configuration.
func Fetch(ctx context.Context, url string) (client.Result, error) {
	return New(client.Config{}).Fetch(ctx, url)
}

// Paginate fetches all pages with default configuration.
func Paginate(ctx context.Context, url string) (pagination.Pages, error) {
	return New(client.Config{}).Paginate(ctx, url)
}

// FetchAll fetches and flattens all pages with default configuration.
func FetchAll(ctx context.Context, url string) (pagination.Items, error) {
	return New(client.Config{}).FetchAll(ctx, url)
}
