package domain

import (
	"context"
	"errors"
	"time"

	"releasepulse/internal/adapters/ingest/github"
	"releasepulse/internal/core/window"
)

// Sink persists finished records. Implementations must be safe for concurrent use
type Sink interface {
	Name() string
	Write(ctx context.Context, recs []Record) error
}

// GitHub is the slice of the REST client the collector needs
type GitHub interface {
	SearchRepositories(ctx context.Context, q github.SearchQuery) (github.SearchResult, error)
	ListReleases(ctx context.Context, owner, name string, perPage int) ([]github.Release, error)
	UserByLogin(ctx context.Context, login string) (github.User, error)
}

// ErrLeaseHeld signals another collector already claimed the search page
var ErrLeaseHeld = errors.New("releases: page lease already held")

// PageLease runs do only if the (day, query, page) claim is new.
// A claim already taken returns ErrLeaseHeld without running do
type PageLease func(ctx context.Context, day time.Time, query string, page int, do func(context.Context) error) error

// StarFetcher supplies ascending star pages for "owner/name"
type StarFetcher = window.Fetcher

// DefaultListLimit applies when a list query has no limit
const DefaultListLimit = 50

// ListQuery filters stored records
type ListQuery struct {
	Repo   string `json:"repo,omitempty" validate:"omitempty,repo_slug"`
	Limit  int    `json:"limit" validate:"min=1,max=500"`
	Offset int    `json:"offset" validate:"min=0"`
}

// ReaderPort lists stored records for the API
type ReaderPort interface {
	List(ctx context.Context, q ListQuery) ([]Record, int, error)
}
