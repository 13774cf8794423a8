// Command hubfetch paginates a GitHub-style REST resource and prints
// the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hubfetch/hubfetch"
	"github.com/hubfetch/hubfetch/pkg/cache"
	"github.com/hubfetch/hubfetch/pkg/client"
	"github.com/hubfetch/hubfetch/pkg/logging"
)

func main() {
	var (
		raw         = flag.Bool("raw", false, "print raw page responses instead of flattened items")
		single      = flag.Bool("single", false, "fetch only the first page")
		maxAttempts = flag.Int("max-attempts", 0, "attempts per page (default 3)")
		token       = flag.String("token", os.Getenv("HUBFETCH_TOKEN"), "bearer token for the Authorization header")
		logLevel    = flag.String("log-level", getEnv("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
		pretty      = flag.Bool("pretty", false, "human-readable log output")
		timeout     = flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hubfetch [flags] <url>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	url := flag.Arg(0)

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(*logLevel),
		Pretty: *pretty,
		Output: os.Stderr,
	})

	cfg := client.Config{MaxAttempts: *maxAttempts}
	if *token != "" {
		cfg.Headers = map[string]string{"Authorization": "Bearer " + *token}
	}

	opts := []hubfetch.Option{}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			logger.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
		}
		cancel()

		store := cache.NewStore(redisClient, 0)
		opts = append(opts, hubfetch.WithSupplier(store.Supplier()))
		logger.Info().Str("addr", redisURL).Msg("Using Redis page cache for 304 resolution")
	}

	fetcher := hubfetch.New(cfg, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch {
	case *single:
		res, err := fetcher.Fetch(ctx, url)
		if err != nil {
			logger.Fatal().Err(err).Msg("Fetch failed")
		}
		printJSON(map[string]any{
			"status":   res.StatusCode,
			"body":     json.RawMessage(res.Body),
			"activity": res.Activity,
		})

	case *raw:
		pages, err := fetcher.Paginate(ctx, url)
		if err != nil {
			logger.Fatal().Err(err).Msg("Pagination failed")
		}
		out := make([]map[string]any, len(pages.Results))
		for i, page := range pages.Results {
			out[i] = map[string]any{
				"url":    page.URL,
				"status": page.StatusCode,
				"body":   json.RawMessage(page.Body),
			}
		}
		printJSON(map[string]any{
			"pages":    out,
			"activity": pages.Activity,
		})

	default:
		items, err := fetcher.FetchAll(ctx, url)
		if err != nil {
			logger.Fatal().Err(err).Msg("Fetch failed")
		}
		logger.Info().
			Int("items", len(items.Items)).
			Int("pages", len(items.Activity)).
			Msg("Fetch complete")
		printJSON(items.Items)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
