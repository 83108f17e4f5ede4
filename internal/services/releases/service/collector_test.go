package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"releasepulse/internal/adapters/ingest/github"
	"releasepulse/internal/core/window"
	"releasepulse/internal/platform/config"
	perr "releasepulse/internal/platform/errors"
	"releasepulse/internal/platform/metrics"
	kit "releasepulse/internal/platform/testkit"
	"releasepulse/internal/services/releases/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var pub = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeGH struct {
	mu       sync.Mutex
	pages    map[int][]github.Repo
	searchQ  []github.SearchQuery
	releases map[string][]github.Release
	users    map[string]github.User
	relErr   error
	userErr  error
}

func (f *fakeGH) SearchRepositories(_ context.Context, q github.SearchQuery) (github.SearchResult, error) {
	f.mu.Lock()
	f.searchQ = append(f.searchQ, q)
	f.mu.Unlock()
	if q.Page == 99 {
		return github.SearchResult{}, errors.New("search down")
	}
	return github.SearchResult{Items: f.pages[q.Page]}, nil
}

func (f *fakeGH) ListReleases(_ context.Context, owner, name string, _ int) ([]github.Release, error) {
	if f.relErr != nil {
		return nil, f.relErr
	}
	return f.releases[owner+"/"+name], nil
}

func (f *fakeGH) UserByLogin(_ context.Context, login string) (github.User, error) {
	if f.userErr != nil {
		return github.User{}, f.userErr
	}
	u, ok := f.users[login]
	if !ok {
		return github.User{}, &github.GHStatusError{Status: 404, Err: errors.New("not found")}
	}
	return u, nil
}

type memSink struct {
	mu   sync.Mutex
	name string
	err  error
	recs []domain.Record
}

func (s *memSink) Name() string { return s.name }

func (s *memSink) Write(_ context.Context, recs []domain.Record) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.recs = append(s.recs, recs...)
	s.mu.Unlock()
	return nil
}

func at(d time.Duration) window.Event { return window.Event{OccurredAt: pub.Add(d)} }

// starsFor serves one page of stars around pub then an empty page
func starsFor(evs ...window.Event) window.Fetcher {
	return window.FetcherFunc(func(_ context.Context, _ string, page int) (window.Page, error) {
		if page == 1 {
			return window.Page{Index: 1, Events: evs}, nil
		}
		return window.Page{Index: page}, nil
	})
}

func ptr(t time.Time) *time.Time { return &t }

func testConfig() Config {
	c := DefaultConfig()
	c.StartPage, c.EndPage = 1, 1
	c.ReleaseDelay, c.PageDelay, c.StarPageDelay = 0, 0, 0
	c.Concurrency = 2
	return c
}

func newGH() *fakeGH {
	return &fakeGH{
		pages: map[int][]github.Repo{1: {
			{
				FullName: "acme/rocket", Size: 500, Stargazers: 321, ForksCount: 12, WatchersCount: 321,
				Language: "Go", Topics: []string{"CLI", "cli", " Go "}, Owner: github.User{Login: "acme"},
				CreatedAt: pub.AddDate(0, -2, 0), UpdatedAt: pub,
			},
			{FullName: "acme/tiny", Size: 100, Owner: github.User{Login: "acme"}},
		}},
		releases: map[string][]github.Release{
			"acme/rocket": {
				{TagName: "v2.0.0", Name: "  Big   release ", Body: "notes", PublishedAt: ptr(pub)},
				{TagName: "v2.1.0-draft", Draft: true},
				{TagName: "v1.0.0", Prerelease: true, PublishedAt: ptr(pub.AddDate(0, 0, -30))},
			},
			"acme/tiny": {{TagName: "v0.1", PublishedAt: ptr(pub)}},
		},
		users: map[string]github.User{"acme": {Login: "acme", Type: "Organization", Followers: 40, PublicRepos: 7}},
	}
}

func TestCollector_Run(t *testing.T) {
	gh := newGH()
	stars := starsFor(at(-24*time.Hour), at(0), at(72*time.Hour), at(7*24*time.Hour), at(8*24*time.Hour))
	mem := &memSink{name: "mem"}
	broken := &memSink{name: "broken", err: errors.New("disk full")}
	m := metrics.New()

	c, err := NewCollector(gh, stars, []domain.Sink{mem, broken}, testConfig(), m)
	if err != nil {
		t.Fatal(err)
	}
	c.newID = func() string { return "run-123" }
	c.now = func() time.Time { return pub.AddDate(0, 0, 10) }

	sum, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.RunID != "run-123" || sum.Pages != 1 || sum.Repos != 1 || sum.Releases != 2 || sum.SinkErrors != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	if len(gh.searchQ) != 1 {
		t.Fatalf("searches = %d", len(gh.searchQ))
	}
	q := gh.searchQ[0]
	if q.Q != "created:>2023-05-11 stars:100..5000" || q.Sort != "updated" || q.Order != "desc" || q.PerPage != 50 {
		t.Fatalf("search = %+v", q)
	}

	if len(mem.recs) != 2 {
		t.Fatalf("records = %d", len(mem.recs))
	}
	r := mem.recs[0]
	if r.FullName != "acme/rocket/v2.0.0" {
		t.Fatalf("order or name wrong: %q", r.FullName)
	}
	// at(0), at(72h) and at(7d) fall inside; the 7d bound is inclusive
	if r.FirstWeekStars != 3 || !r.StarsComplete {
		t.Fatalf("stars = %d complete=%v", r.FirstWeekStars, r.StarsComplete)
	}
	if r.AuthorType != "Organization" || r.AuthorFollowers != 40 || r.AuthorPublicRepos != 7 {
		t.Fatalf("author = %+v", r)
	}
	if r.ReleaseName != "Big release" || r.RunID != "run-123" || r.RepoStars != 321 {
		t.Fatalf("record = %+v", r)
	}
	if strings.Join(r.Topics, ",") != "cli,go" {
		t.Fatalf("topics = %v", r.Topics)
	}
	if old := mem.recs[1]; old.FullName != "acme/rocket/v1.0.0" || !old.Prerelease || old.FirstWeekStars != 0 {
		t.Fatalf("second record = %+v", old)
	}

	const want = `
# HELP releasepulse_releases_records_total Release records written by sink and outcome
# TYPE releasepulse_releases_records_total counter
releasepulse_releases_records_total{outcome="error",sink="broken"} 2
releasepulse_releases_records_total{outcome="ok",sink="mem"} 2
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "releasepulse_releases_records_total"); err != nil {
		t.Fatal(err)
	}
}

func TestCollector_UnknownAuthorAndIncompleteStars(t *testing.T) {
	gh := newGH()
	gh.users = nil
	failing := window.FetcherFunc(func(_ context.Context, _ string, page int) (window.Page, error) {
		if page == 1 {
			return window.Page{Index: 1, Events: []window.Event{at(time.Hour)}}, nil
		}
		return window.Page{}, errors.New("502 from upstream")
	})
	mem := &memSink{name: "mem"}
	c, err := NewCollector(gh, failing, []domain.Sink{mem}, testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	sum, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// the older release is already past the first page and completes
	if sum.Incomplete != 1 {
		t.Fatalf("incomplete = %d", sum.Incomplete)
	}
	r := mem.recs[0]
	if r.AuthorType != domain.UnknownAuthor || r.AuthorFollowers != 0 {
		t.Fatalf("author = %+v", r)
	}
	if r.StarsComplete || r.FirstWeekStars != 1 {
		t.Fatalf("partial count should be kept: %+v", r)
	}
}

func TestCollector_UpstreamFailuresAreSkipped(t *testing.T) {
	gh := newGH()
	gh.relErr = errors.New("boom")
	mem := &memSink{name: "mem"}
	cfg := testConfig()
	cfg.EndPage = 2
	c, err := NewCollector(gh, starsFor(), []domain.Sink{mem}, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Pages != 2 || sum.Releases != 0 || len(mem.recs) != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestCollector_SearchErrorContinues(t *testing.T) {
	gh := newGH()
	cfg := testConfig()
	cfg.StartPage, cfg.EndPage = 99, 100
	c, err := NewCollector(gh, starsFor(), []domain.Sink{&memSink{name: "mem"}}, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := c.Run(context.Background())
	if err != nil || sum.Pages != 2 || len(gh.searchQ) != 2 {
		t.Fatalf("sum=%+v err=%v searches=%d", sum, err, len(gh.searchQ))
	}
}

func TestCollector_CanceledRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := NewCollector(newGH(), starsFor(), []domain.Sink{&memSink{name: "mem"}}, testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestAuthorOf(t *testing.T) {
	gh := newGH()
	c, _ := NewCollector(gh, starsFor(), []domain.Sink{&memSink{name: "mem"}}, testConfig(), nil)
	ctx := context.Background()

	if a := c.authorOf(ctx, ""); a != domain.UnknownAuthorFeatures() {
		t.Fatalf("empty login = %+v", a)
	}
	if a := c.authorOf(ctx, "ghost"); a.Type != domain.UnknownAuthor {
		t.Fatalf("404 = %+v", a)
	}
	gh.userErr = errors.New("timeout")
	if a := c.authorOf(ctx, "acme"); a.Type != domain.UnknownAuthor {
		t.Fatalf("error = %+v", a)
	}
}

func TestNewCollector_Validation(t *testing.T) {
	cfg := testConfig()
	cfg.EndPage = 0
	_, err := NewCollector(newGH(), starsFor(), []domain.Sink{&memSink{name: "mem"}}, cfg, nil)
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewCollector(newGH(), starsFor(), nil, testConfig(), nil); err == nil {
		t.Fatal("expected error without sinks")
	}
	kit.MustPanic(t, func() { _, _ = NewCollector(nil, starsFor(), nil, testConfig(), nil) })
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("RELEASES_END_PAGE", "3")
	t.Setenv("RELEASES_RELEASE_DELAY", "1s")
	c := ConfigFromEnv(config.New().Prefix("RELEASES_"))
	if c.EndPage != 3 || c.ReleaseDelay != time.Second || c.MinStars != 100 {
		t.Fatalf("config = %+v", c)
	}
}

func TestCollector_LeaseSkipsClaimedPages(t *testing.T) {
	gh := newGH()
	cfg := testConfig()
	cfg.EndPage = 3

	var claims []int
	lease := func(ctx context.Context, _ time.Time, q string, page int, do func(context.Context) error) error {
		claims = append(claims, page)
		switch page {
		case 2:
			return domain.ErrLeaseHeld
		case 3:
			return errors.New("lease table missing")
		}
		return do(ctx)
	}
	c, err := NewCollector(gh, starsFor(at(time.Hour)), []domain.Sink{&memSink{name: "mem"}}, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := c.WithLease(lease).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(claims) != 3 || sum.Leased != 1 || sum.Pages != 1 || sum.Repos != 1 {
		t.Fatalf("claims=%v sum=%+v", claims, sum)
	}
	if len(gh.searchQ) != 1 {
		t.Fatalf("searched %d pages, want only the claimed one", len(gh.searchQ))
	}
}
