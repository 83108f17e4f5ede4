package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"releasepulse/internal/core/window"
	perr "releasepulse/internal/platform/errors"
)

const defaultStarsPerPage = 100

// StarFeed exposes a repository's stargazers as an ascending window.Fetcher.
// The resource is "owner/name"
type StarFeed struct {
	c       *Client
	perPage int
}

// NewStarFeed wraps c; perPage <= 0 uses GitHub's maximum of 100
func NewStarFeed(c *Client, perPage int) *StarFeed {
	if perPage <= 0 || perPage > defaultStarsPerPage {
		perPage = defaultStarsPerPage
	}
	return &StarFeed{c: c, perPage: perPage}
}

// FetchPage implements window.Fetcher.
// A 404 means the repository is gone and reads as an empty feed; any other
// failure, including GitHub's pagination cap (422), is ErrFeedUnavailable
func (f *StarFeed) FetchPage(ctx context.Context, resource string, page int) (window.Page, error) {
	owner, name, ok := SplitFullName(resource)
	if !ok {
		return window.Page{}, perr.InvalidArgf("star feed: bad repository %q", resource)
	}

	stars, err := f.c.Stargazers(ctx, owner, name, page, f.perPage)
	if err != nil {
		switch StatusOf(err) {
		case http.StatusNotFound:
			f.c.log.Warn().Str("repo", resource).Int("page", page).Msg("stargazers not found; treating as empty")
			return window.Page{Index: page}, nil
		case http.StatusUnprocessableEntity:
			f.c.log.Warn().Str("repo", resource).Int("page", page).Msg("stargazers pagination limit reached")
		}
		if ctx.Err() != nil {
			return window.Page{}, ctx.Err()
		}
		return window.Page{}, fmt.Errorf("%w: %s page %d: %w", window.ErrFeedUnavailable, resource, page, err)
	}

	p := window.Page{Index: page, Events: make([]window.Event, 0, len(stars))}
	for i, s := range stars {
		ts, err := time.Parse(time.RFC3339, s.StarredAt)
		if err != nil {
			return window.Page{}, fmt.Errorf("%w: %s page %d item %d starred_at %q",
				window.ErrMalformedEvent, resource, page, i, s.StarredAt)
		}
		p.Events = append(p.Events, window.Event{OccurredAt: ts.UTC()})
	}
	return p, nil
}
