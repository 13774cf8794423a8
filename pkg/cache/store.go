// Package cache provides a Redis-backed page cache for conditional
// re-fetching. It stores the flattened items and etag of a page keyed
// by its canonical URL, supplies per-page etags for If-None-Match
// headers, and resolves 304 pages during flattening.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hubfetch/hubfetch/pkg/pagination"
)

var (
	// ErrCacheMiss indicates the requested URL was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultTTL bounds how long a cached page survives without a
// conditional hit confirming it is still fresh.
const DefaultTTL = 24 * time.Hour

// Entry is one cached page.
type Entry struct {
	// ETag is the validator returned with the page.
	ETag string `json:"etag"`

	// Items holds the page's body items in original order.
	Items []json.RawMessage `json:"items"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// Store handles page caching with a Redis backend.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a page cache store. A zero ttl falls back to
// DefaultTTL.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Key generates the deterministic cache key for a page URL.
func Key(url string) string {
	return "hubfetch:page:" + url
}

// Get retrieves the cached entry for a page URL.
// Returns ErrCacheMiss if the URL has no entry.
func (s *Store) Get(ctx context.Context, url string) (*Entry, error) {
	data, err := s.redis.Get(ctx, Key(url)).Bytes()
	if err != nil {
		if err == redis.Nil {
			cacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	cacheHits.Inc()
	return &entry, nil
}

// Put stores a page's etag and items under its canonical URL.
func (s *Store) Put(ctx context.Context, url, etag string, items []json.RawMessage) error {
	entry := Entry{
		ETag:     etag,
		Items:    items,
		CachedAt: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, Key(url), data, s.ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes the cached entry for a page URL.
func (s *Store) Delete(ctx context.Context, url string) error {
	if err := s.redis.Del(ctx, Key(url)).Err(); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// ETag returns the cached validator for a page URL, or "" when the
// page has no entry. Use it to build the per-page etag sequence for a
// conditional pagination run.
func (s *Store) ETag(ctx context.Context, url string) (string, error) {
	entry, err := s.Get(ctx, url)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return "", nil
		}
		return "", err
	}
	return entry.ETag, nil
}

// Supplier returns an item supplier resolving 304 pages from this
// store. A 304 for a URL with no cache entry is a hard error: the
// server validated an etag this store never issued.
func (s *Store) Supplier() pagination.ItemSupplier {
	return func(ctx context.Context, url string) ([]json.RawMessage, error) {
		entry, err := s.Get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", url, err)
		}
		notModifiedHits.Inc()
		return entry.Items, nil
	}
}
