// Package linkheader decodes the pagination "link" response header and
// normalizes fetch URLs with a maximum-page-size hint.
package linkheader

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Relation names carried by the link header.
const (
	RelNext  = "next"
	RelPrev  = "prev"
	RelFirst = "first"
	RelLast  = "last"
)

// DefaultPageSize is the per_page hint attached to every fetch URL that
// does not already carry one.
const DefaultPageSize = 100

// ErrMalformedLink indicates the link header was empty or could not be
// parsed. This is a hard error, never retried.
var ErrMalformedLink = errors.New("malformed link header")

// Links maps a relation name to its absolute URL.
type Links map[string]string

// Next returns the next-page URL, or "" when pagination is complete.
func (l Links) Next() string {
	return l[RelNext]
}

// Parse decodes a link header of the form
//
//	<https://api.example.com/items?page=2>; rel="next", <...>; rel="last"
//
// into a relation-to-URL map. An empty header or an entry without a
// bracketed URL and a rel parameter is ErrMalformedLink.
func Parse(header string) (Links, error) {
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("%w: empty header", ErrMalformedLink)
	}

	links := make(Links)
	for _, entry := range strings.Split(header, ",") {
		parts := strings.Split(entry, ";")
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: entry %q has no parameters", ErrMalformedLink, strings.TrimSpace(entry))
		}

		target := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			return nil, fmt.Errorf("%w: entry %q has no bracketed URL", ErrMalformedLink, strings.TrimSpace(entry))
		}
		target = strings.Trim(target, "<>")

		rel := ""
		for _, param := range parts[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok {
				continue
			}
			if strings.TrimSpace(key) == "rel" {
				rel = strings.Trim(strings.TrimSpace(value), `"`)
			}
		}
		if rel == "" {
			return nil, fmt.Errorf("%w: entry %q has no rel parameter", ErrMalformedLink, strings.TrimSpace(entry))
		}

		links[rel] = target
	}

	return links, nil
}

// Normalize ensures the URL carries a per_page query hint so the server
// returns full pages. An existing per_page value is preserved.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	query := u.Query()
	if query.Get("per_page") == "" {
		query.Set("per_page", strconv.Itoa(DefaultPageSize))
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}
