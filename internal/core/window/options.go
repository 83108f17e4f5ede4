package window

import (
	"context"
	"time"
)

// Pacer runs before every fetch after the first. Returning an error stops the count
type Pacer func(ctx context.Context, nextPage int) error

// PageStat describes one processed page
type PageStat struct {
	Resource    string
	Page        int
	Events      int
	Contributed int
}

// Observer is notified after each non-empty page is counted
type Observer func(PageStat)

// Option configures a Count call
type Option func(*options)

type options struct {
	pacer    Pacer
	observer Observer
}

// WithPacer installs a pacing hook between fetches
func WithPacer(p Pacer) Option { return func(o *options) { o.pacer = p } }

// WithObserver installs a per-page callback
func WithObserver(fn Observer) Option { return func(o *options) { o.observer = fn } }

// Sleep returns a Pacer that waits d between fetches, honoring ctx
func Sleep(d time.Duration) Pacer {
	return func(ctx context.Context, _ int) error {
		if d <= 0 {
			return ctx.Err()
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
}
