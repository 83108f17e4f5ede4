package window

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Count returns how many events of resource's feed fall in w.
//
// The feed must be ascending across pages. Each page is bisected for the
// first event at or after the anchor (lo) and the first event after the end
// (hi); hi-lo events are added. When hi is 0 the whole page lies past the
// window and so does every later page, so fetching stops. A page that lies
// wholly before the window keeps the loop going.
//
// On a fetch failure, an ordering violation or cancellation, the partial
// Result is returned along with the error and Complete is false
func Count(ctx context.Context, resource string, w Window, f Fetcher, opts ...Option) (Result, error) {
	var res Result
	if err := w.Validate(); err != nil {
		res.Stop = StopFailed
		return res, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	start, end := w.Anchor, w.End()
	var last time.Time

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			res.Stop = StopCanceled
			return res, err
		}

		if page > 1 && o.pacer != nil {
			if err := o.pacer(ctx, page); err != nil {
				return res, stopOn(ctx, &res, err)
			}
		}

		p, err := f.FetchPage(ctx, resource, page)
		if err != nil {
			return res, stopOn(ctx, &res, fetchErr(resource, page, err))
		}
		res.Pages++

		evs := p.Events
		if len(evs) == 0 {
			res.Complete, res.Stop = true, StopExhausted
			return res, nil
		}

		if err := checkPage(evs, last, page); err != nil {
			res.Stop = StopFailed
			return res, err
		}
		last = evs[len(evs)-1].OccurredAt

		lo := sort.Search(len(evs), func(i int) bool { return !evs[i].OccurredAt.Before(start) })
		hi := sort.Search(len(evs), func(i int) bool { return evs[i].OccurredAt.After(end) })
		res.Count += hi - lo

		if o.observer != nil {
			o.observer(PageStat{Resource: resource, Page: page, Events: len(evs), Contributed: hi - lo})
		}

		if hi == 0 {
			res.Complete, res.Stop = true, StopPastWindow
			return res, nil
		}
	}
}

// checkPage verifies timestamps are set and non-decreasing, including against
// the last event of the previous page
func checkPage(evs []Event, prev time.Time, page int) error {
	for i, e := range evs {
		if e.OccurredAt.IsZero() {
			return fmt.Errorf("%w: page %d index %d has no timestamp", ErrMalformedEvent, page, i)
		}
		if !prev.IsZero() && e.OccurredAt.Before(prev) {
			return fmt.Errorf("%w: page %d index %d at %s precedes %s",
				ErrOutOfOrderFeed, page, i, e.OccurredAt.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = e.OccurredAt
	}
	return nil
}

// fetchErr keeps fetcher-reported data errors as they are and marks anything
// else as an unavailable feed
func fetchErr(resource string, page int, err error) error {
	switch {
	case errors.Is(err, ErrMalformedEvent), errors.Is(err, ErrOutOfOrderFeed),
		errors.Is(err, ErrFeedUnavailable),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %s page %d: %w", ErrFeedUnavailable, resource, page, err)
}

func stopOn(ctx context.Context, res *Result, err error) error {
	res.Complete = false
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		res.Stop = StopCanceled
	} else {
		res.Stop = StopFailed
	}
	return err
}
