package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/hubfetch/hubfetch/pkg/activity"
)

// FlattenConcurrency bounds the fan-out when resolving page bodies.
// Flattening has no ordering dependency between pages beyond the final
// output order, so pages may resolve in parallel.
const FlattenConcurrency = 10

// ErrNoSupplier is returned when a 304 page must be resolved but no
// item supplier was configured.
var ErrNoSupplier = errors.New("encountered a 304 response but no item supplier is configured")

// ItemSupplier resolves a 304 page to the items previously cached for
// its URL. It is the caller's bridge to an external cache keyed by the
// conditional-request URL.
type ItemSupplier func(ctx context.Context, url string) ([]json.RawMessage, error)

// Items is the flattened output of a pagination run: the concatenated
// items of all pages, in page order, plus the original audit trail.
type Items struct {
	// Items holds the raw domain items in page order, preserving the
	// within-page order of each body.
	Items []json.RawMessage

	// Activity is carried forward from the pagination run.
	Activity []activity.Record
}

// Flatten reduces an ordered sequence of page responses into one flat
// item sequence. Page bodies resolve concurrently with a fixed fan-out
// limit; the output order always matches the input page order.
//
// A 200 page contributes its body, which must be a JSON array of items.
// A 304 page is resolved through the supplier. Any other status fails
// the whole flatten with an error naming the offending page.
func Flatten(ctx context.Context, pages Pages, supplier ItemSupplier) (Items, error) {
	perPage := make([][]json.RawMessage, len(pages.Results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(FlattenConcurrency)

	for i, res := range pages.Results {
		g.Go(func() error {
			switch {
			case res.StatusCode == http.StatusOK:
				var items []json.RawMessage
				if err := json.Unmarshal(res.Body, &items); err != nil {
					return fmt.Errorf("page %d: body is not a JSON array: %w", i, err)
				}
				perPage[i] = items
				return nil

			case res.StatusCode == http.StatusNotModified:
				if supplier == nil {
					return fmt.Errorf("page %d: %w", i, ErrNoSupplier)
				}
				items, err := supplier(gctx, res.URL)
				if err != nil {
					return fmt.Errorf("page %d: resolve 304 via supplier: %w", i, err)
				}
				perPage[i] = items
				return nil

			default:
				return fmt.Errorf("page %d: cannot flatten response with status %d", i, res.StatusCode)
			}
		})
	}

	if err := g.Wait(); err != nil {
		return Items{}, err
	}

	var flat []json.RawMessage
	for _, items := range perPage {
		flat = append(flat, items...)
	}

	return Items{Items: flat, Activity: pages.Activity}, nil
}
