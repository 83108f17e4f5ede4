package window

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	kit "releasepulse/internal/platform/testkit"
)

// feed serves fixed pages and counts fetches
type feed struct {
	pages [][]Event
	calls int
	errAt int
	err   error
}

func (f *feed) FetchPage(_ context.Context, _ string, page int) (Page, error) {
	f.calls++
	if f.errAt == page {
		return Page{}, f.err
	}
	if page-1 >= len(f.pages) {
		return Page{Index: page}, nil
	}
	return Page{Index: page, Events: f.pages[page-1]}, nil
}

func evs(t *testing.T, ts ...string) []Event {
	t.Helper()
	out := make([]Event, 0, len(ts))
	for _, s := range ts {
		out = append(out, Event{OccurredAt: kit.MustTime(t, s)})
	}
	return out
}

func week(t *testing.T) Window {
	return Window{Anchor: kit.MustTime(t, "2024-01-01T00:00:00Z"), Duration: 7 * 24 * time.Hour}
}

func TestCount_ConcreteScenario(t *testing.T) {
	f := &feed{pages: [][]Event{
		evs(t, "2023-12-31T23:00Z", "2024-01-01T00:00Z", "2024-01-03T00:00Z"),
		evs(t, "2024-01-08T00:00Z", "2024-01-09T00:00Z"),
	}}
	var contributed []int
	res, err := Count(context.Background(), "octo/repo", week(t), f,
		WithObserver(func(s PageStat) { contributed = append(contributed, s.Contributed) }))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if res.Count != 3 {
		t.Fatalf("count = %d, want 3", res.Count)
	}
	if len(contributed) != 2 || contributed[0] != 2 || contributed[1] != 1 {
		t.Fatalf("per page = %v, want [2 1]", contributed)
	}
	if !res.Complete || res.Stop != StopExhausted || res.Pages != 3 || f.calls != 3 {
		t.Fatalf("res = %+v calls = %d", res, f.calls)
	}
}

func TestCount_EmptyFeed(t *testing.T) {
	f := &feed{}
	res, err := Count(context.Background(), "r", week(t), f)
	if err != nil || res.Count != 0 || !res.Complete || res.Stop != StopExhausted || f.calls != 1 {
		t.Fatalf("res = %+v err = %v calls = %d", res, err, f.calls)
	}
}

func TestCount_AllBeforeWindowKeepsPaging(t *testing.T) {
	f := &feed{pages: [][]Event{
		evs(t, "2023-12-01T00:00Z", "2023-12-02T00:00Z"),
		evs(t, "2023-12-20T00:00Z"),
		evs(t, "2023-12-31T23:59Z"),
	}}
	res, err := Count(context.Background(), "r", week(t), f)
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 || res.Stop != StopExhausted || f.calls != 4 {
		t.Fatalf("res = %+v calls = %d", res, f.calls)
	}
}

func TestCount_AllAfterWindowFetchesOnce(t *testing.T) {
	f := &feed{pages: [][]Event{
		evs(t, "2024-01-15T00:00Z"),
		evs(t, "2024-01-16T00:00Z"),
	}}
	res, err := Count(context.Background(), "r", week(t), f)
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 || f.calls != 1 || res.Stop != StopPastWindow || !res.Complete {
		t.Fatalf("res = %+v calls = %d", res, f.calls)
	}
}

func TestCount_StopsOnPageStartingPastWindow(t *testing.T) {
	f := &feed{pages: [][]Event{
		evs(t, "2024-01-02T00:00Z", "2024-01-03T00:00Z"),
		evs(t, "2024-01-09T00:00Z"),
		evs(t, "2024-01-10T00:00Z"),
	}}
	res, err := Count(context.Background(), "r", week(t), f)
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 2 || f.calls != 2 || res.Stop != StopPastWindow {
		t.Fatalf("res = %+v calls = %d", res, f.calls)
	}
}

func TestCount_BoundariesInclusive(t *testing.T) {
	w := week(t)
	f := &feed{pages: [][]Event{{
		{OccurredAt: w.Anchor.Add(-time.Nanosecond)},
		{OccurredAt: w.Anchor},
		{OccurredAt: w.End()},
		{OccurredAt: w.End().Add(time.Nanosecond)},
	}}}
	res, err := Count(context.Background(), "r", w, f)
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 2 {
		t.Fatalf("count = %d, want 2", res.Count)
	}
}

func TestCount_DuplicateTimestamps(t *testing.T) {
	f := &feed{pages: [][]Event{
		evs(t, "2024-01-01T00:00Z", "2024-01-01T00:00Z"),
		evs(t, "2024-01-01T00:00Z", "2024-01-08T00:00Z", "2024-01-08T00:00Z"),
	}}
	res, err := Count(context.Background(), "r", week(t), f)
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 5 {
		t.Fatalf("count = %d, want 5", res.Count)
	}
}

func TestCount_MatchesNaiveFilter(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	base := kit.MustTime(t, "2024-01-01")

	for iter := 0; iter < 500; iter++ {
		n := rng.IntN(60)
		ts := make([]time.Time, n)
		cur := base.Add(-time.Duration(rng.IntN(20*24)) * time.Hour)
		for i := range ts {
			// small steps with frequent duplicates
			cur = cur.Add(time.Duration(rng.IntN(3)) * 12 * time.Hour)
			ts[i] = cur
		}

		size := 1 + rng.IntN(8)
		var pages [][]Event
		for i := 0; i < n; i += size {
			j := min(i+size, n)
			p := make([]Event, 0, j-i)
			for _, x := range ts[i:j] {
				p = append(p, Event{OccurredAt: x})
			}
			pages = append(pages, p)
		}

		w := Window{
			Anchor:   base.Add(time.Duration(rng.IntN(10*24)-5*24) * time.Hour),
			Duration: time.Duration(1+rng.IntN(10*24)) * time.Hour,
		}

		want := 0
		for _, x := range ts {
			if w.Contains(x) {
				want++
			}
		}

		f := &feed{pages: pages}
		res, err := Count(context.Background(), "r", w, f)
		if err != nil {
			t.Fatalf("iter %d: %v", iter, err)
		}
		if res.Count != want {
			t.Fatalf("iter %d: count = %d, naive = %d (window %s, page size %d)", iter, res.Count, want, w, size)
		}
		if !res.Complete {
			t.Fatalf("iter %d: expected complete result", iter)
		}
		if f.calls > len(pages)+1 {
			t.Fatalf("iter %d: %d fetches for %d pages", iter, f.calls, len(pages))
		}
	}
}

func TestCount_OutOfOrderWithinPage(t *testing.T) {
	f := &feed{pages: [][]Event{
		evs(t, "2024-01-02T00:00Z", "2024-01-01T12:00Z"),
	}}
	res, err := Count(context.Background(), "r", week(t), f)
	if !errors.Is(err, ErrOutOfOrderFeed) {
		t.Fatalf("err = %v, want ErrOutOfOrderFeed", err)
	}
	if res.Complete || res.Stop != StopFailed {
		t.Fatalf("res = %+v", res)
	}
}

func TestCount_OutOfOrderAcrossPages(t *testing.T) {
	f := &feed{pages: [][]Event{
		evs(t, "2024-01-02T00:00Z", "2024-01-03T00:00Z"),
		evs(t, "2024-01-02T12:00Z"),
	}}
	res, err := Count(context.Background(), "r", week(t), f)
	if !errors.Is(err, ErrOutOfOrderFeed) {
		t.Fatalf("err = %v", err)
	}
	if res.Count != 2 || res.Pages != 2 {
		t.Fatalf("partial = %+v, want count 2 from page 1", res)
	}
}

func TestCount_MalformedEvent(t *testing.T) {
	f := &feed{pages: [][]Event{{{}}}}
	_, err := Count(context.Background(), "r", week(t), f)
	if !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("err = %v", err)
	}

	f = &feed{errAt: 1, err: ErrMalformedEvent}
	res, err := Count(context.Background(), "r", week(t), f)
	if !errors.Is(err, ErrMalformedEvent) || errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("fetcher malformed should pass through, got %v", err)
	}
	if res.Stop != StopFailed {
		t.Fatalf("stop = %s", res.Stop)
	}
}

func TestCount_FetchFailureReturnsPartial(t *testing.T) {
	boom := errors.New("502 bad gateway")
	f := &feed{
		pages: [][]Event{evs(t, "2024-01-01T00:00Z", "2024-01-02T00:00Z")},
		errAt: 2,
		err:   boom,
	}
	res, err := Count(context.Background(), "octo/repo", week(t), f)
	if !errors.Is(err, ErrFeedUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	kit.MustContain(t, err.Error(), "octo/repo page 2")
	if res.Count != 2 || res.Complete || res.Stop != StopFailed || res.Pages != 1 {
		t.Fatalf("res = %+v", res)
	}
}

func TestCount_CanceledBeforeFirstFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &feed{pages: [][]Event{evs(t, "2024-01-02T00:00Z")}}
	res, err := Count(ctx, "r", week(t), f)
	if !errors.Is(err, context.Canceled) || res.Stop != StopCanceled || f.calls != 0 {
		t.Fatalf("res = %+v err = %v calls = %d", res, err, f.calls)
	}
}

func TestCount_PacerRunsBetweenFetches(t *testing.T) {
	f := &feed{pages: [][]Event{
		evs(t, "2024-01-01T00:00Z"),
		evs(t, "2024-01-02T00:00Z"),
	}}
	var paced []int
	res, err := Count(context.Background(), "r", week(t), f, WithPacer(func(_ context.Context, next int) error {
		paced = append(paced, next)
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 2 {
		t.Fatalf("pacing changed result: %d", res.Count)
	}
	if len(paced) != 2 || paced[0] != 2 || paced[1] != 3 {
		t.Fatalf("paced = %v, want [2 3]", paced)
	}
}

func TestCount_CancelDuringPacingKeepsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &feed{pages: [][]Event{
		evs(t, "2024-01-01T00:00Z", "2024-01-02T00:00Z"),
		evs(t, "2024-01-03T00:00Z"),
	}}
	res, err := Count(ctx, "r", week(t), f, WithPacer(func(ctx context.Context, _ int) error {
		cancel()
		return ctx.Err()
	}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if res.Count != 2 || res.Stop != StopCanceled || res.Complete {
		t.Fatalf("res = %+v", res)
	}
}

func TestCount_InvalidWindow(t *testing.T) {
	f := &feed{}
	_, err := Count(context.Background(), "r", Window{Anchor: time.Now()}, f)
	if !errors.Is(err, ErrInvalidWindow) || f.calls != 0 {
		t.Fatalf("err = %v calls = %d", err, f.calls)
	}
	_, err = Count(context.Background(), "r", Window{Duration: time.Hour}, f)
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("zero anchor: err = %v", err)
	}
}

func TestCount_IndependentCalls(t *testing.T) {
	f := FetcherFunc(func(_ context.Context, resource string, page int) (Page, error) {
		if page > 1 {
			return Page{}, nil
		}
		if resource == "a" {
			return Page{Index: 1, Events: evs(t, "2024-01-02T00:00Z")}, nil
		}
		return Page{Index: 1, Events: evs(t, "2024-01-02T00:00Z", "2024-01-03T00:00Z")}, nil
	})
	ra, _ := Count(context.Background(), "a", week(t), f)
	rb, _ := Count(context.Background(), "b", week(t), f)
	ra2, _ := Count(context.Background(), "a", week(t), f)
	if ra.Count != 1 || rb.Count != 2 || ra2 != ra {
		t.Fatalf("a=%+v b=%+v a2=%+v", ra, rb, ra2)
	}
}

func TestSleepPacer(t *testing.T) {
	if err := Sleep(0)(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(time.Hour)(ctx, 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestWindowHelpers(t *testing.T) {
	w := Days(kit.MustTime(t, "2024-01-01"), 7)
	if !w.End().Equal(kit.MustTime(t, "2024-01-08")) {
		t.Fatalf("end = %s", w.End())
	}
	if w.String() != "2024-01-01T00:00:00Z..2024-01-08T00:00:00Z" {
		t.Fatalf("string = %s", w)
	}
	if !w.Contains(w.Anchor) || !w.Contains(w.End()) || w.Contains(w.End().Add(time.Second)) {
		t.Fatalf("contains broken")
	}
}
