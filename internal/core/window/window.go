// Package window counts events that fall inside a fixed time window over a
// paginated, ascending feed, fetching as few pages as the data allows
package window

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Event is a single timestamped occurrence. OccurredAt is UTC
type Event struct {
	OccurredAt time.Time
}

// Page is one batch of events. Index is 1-based; an empty page means the feed is exhausted
type Page struct {
	Index  int
	Events []Event
}

// Window is the inclusive interval [Anchor, Anchor+Duration]
type Window struct {
	Anchor   time.Time
	Duration time.Duration
}

// Days builds a window of n whole days starting at anchor
func Days(anchor time.Time, n int) Window {
	return Window{Anchor: anchor.UTC(), Duration: time.Duration(n) * 24 * time.Hour}
}

// End returns Anchor+Duration
func (w Window) End() time.Time { return w.Anchor.Add(w.Duration) }

// Contains reports whether t is inside the window, bounds included
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Anchor) && !t.After(w.End())
}

// Validate rejects zero anchors and non-positive durations
func (w Window) Validate() error {
	if w.Anchor.IsZero() {
		return fmt.Errorf("%w: zero anchor", ErrInvalidWindow)
	}
	if w.Duration <= 0 {
		return fmt.Errorf("%w: duration %s", ErrInvalidWindow, w.Duration)
	}
	return nil
}

func (w Window) String() string {
	return w.Anchor.Format(time.RFC3339) + ".." + w.End().Format(time.RFC3339)
}

// Fetcher retrieves page n (1-based) of a resource's ascending event feed
type Fetcher interface {
	FetchPage(ctx context.Context, resource string, page int) (Page, error)
}

// FetcherFunc adapts a plain function to Fetcher
type FetcherFunc func(ctx context.Context, resource string, page int) (Page, error)

// FetchPage calls f
func (f FetcherFunc) FetchPage(ctx context.Context, resource string, page int) (Page, error) {
	return f(ctx, resource, page)
}

// Sentinel errors. Fetchers wrap them, Count returns them wrapped
var (
	ErrInvalidWindow   = errors.New("window: invalid window")
	ErrFeedUnavailable = errors.New("window: feed unavailable")
	ErrMalformedEvent  = errors.New("window: malformed event")
	ErrOutOfOrderFeed  = errors.New("window: feed out of order")
)

// StopReason says why Count stopped fetching
type StopReason string

// Stop reasons
const (
	StopExhausted  StopReason = "exhausted"
	StopPastWindow StopReason = "past_window"
	StopFailed     StopReason = "failed"
	StopCanceled   StopReason = "canceled"
)

// Result is the outcome of Count. Count is valid even when Complete is false;
// it then covers only the pages fetched before the stop
type Result struct {
	Count    int        `json:"count"`
	Pages    int        `json:"pages"`
	Complete bool       `json:"complete"`
	Stop     StopReason `json:"stop"`
}
