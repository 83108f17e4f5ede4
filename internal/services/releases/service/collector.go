// Package service contains the release collection and listing workflows
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"releasepulse/internal/adapters/ingest/github"
	"releasepulse/internal/core/normalize"
	"releasepulse/internal/core/window"
	"releasepulse/internal/platform/logger"
	"releasepulse/internal/platform/metrics"
	"releasepulse/internal/platform/net/http/bind"
	ptime "releasepulse/internal/platform/time"
	"releasepulse/internal/services/releases/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// maxBodyRunes caps stored release notes
const maxBodyRunes = 20000

// Summary reports the totals of one run
type Summary struct {
	RunID      string `json:"run_id"`
	Pages      int    `json:"pages"`
	Repos      int    `json:"repos"`
	Releases   int    `json:"releases"`
	Incomplete int    `json:"incomplete"` // records whose star count stopped early
	SinkErrors int    `json:"sink_errors"`
	Leased     int    `json:"leased"` // pages skipped because another run claimed them
}

// Collector searches recent repositories and turns their releases into records
type Collector struct {
	gh      domain.GitHub
	stars   domain.StarFetcher
	sinks   []domain.Sink
	cfg     Config
	metrics *metrics.Manager
	lease   domain.PageLease

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
	newID func() string
}

// NewCollector validates cfg and wires the collector
func NewCollector(gh domain.GitHub, stars domain.StarFetcher, sinks []domain.Sink, cfg Config, m *metrics.Manager) (*Collector, error) {
	if gh == nil || stars == nil {
		panic("releases.Collector requires a GitHub client and a star feed")
	}
	if err := bind.Validate(cfg); err != nil {
		return nil, err
	}
	if len(sinks) == 0 {
		return nil, errors.New("releases: at least one sink is required")
	}
	return &Collector{
		gh:      gh,
		stars:   stars,
		sinks:   sinks,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
		sleep:   sleepCtx,
		newID:   uuid.NewString,
	}, nil
}

// WithLease makes the collector claim each search page before collecting it
func (c *Collector) WithLease(l domain.PageLease) *Collector {
	c.lease = l
	return c
}

// SearchQuery builds the repository search for a run started at now
func (c *Collector) SearchQuery(now time.Time) string {
	since := now.UTC().AddDate(0, 0, -c.cfg.DaysBack).Format("2006-01-02")
	return fmt.Sprintf("created:>%s stars:%d..%d", since, c.cfg.MinStars, c.cfg.MaxStars)
}

// Run walks the configured search pages. Upstream failures are logged and
// skipped; only cancellation ends the run early
func (c *Collector) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: c.newID()}
	ctx = logger.WithRun(ctx, sum.RunID)
	log := logger.C(ctx)

	started := c.now()
	q := c.SearchQuery(started)
	log.Info().Str("query", q).Int("start_page", c.cfg.StartPage).Int("end_page", c.cfg.EndPage).Msg("collection started")

	for page := c.cfg.StartPage; page <= c.cfg.EndPage; page++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		n, err := c.claimPage(ctx, started, q, page, &sum)
		if errors.Is(err, domain.ErrLeaseHeld) {
			sum.Leased++
			log.Info().Int("page", page).Msg("page claimed by another run, skipping")
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			log.Error().Err(err).Int("page", page).Msg("page lease failed, skipping")
			continue
		}

		if n > 0 && page < c.cfg.EndPage {
			if err := c.sleep(ctx, c.cfg.PageDelay); err != nil {
				return sum, err
			}
		}
	}

	log.Info().
		Int("repos", sum.Repos).
		Int("releases", sum.Releases).
		Int("incomplete", sum.Incomplete).
		Int("sink_errors", sum.SinkErrors).
		Int("leased", sum.Leased).
		Dur("took", c.now().Sub(started)).
		Msg("collection finished")
	return sum, nil
}

// claimPage collects one page, under the lease when one is set
func (c *Collector) claimPage(ctx context.Context, started time.Time, q string, page int, sum *Summary) (int, error) {
	if c.lease == nil {
		return c.collectPage(ctx, q, page, sum)
	}
	var n int
	err := c.lease(ctx, started, q, page, func(ctx context.Context) error {
		var err error
		n, err = c.collectPage(ctx, q, page, sum)
		return err
	})
	return n, err
}

// collectPage searches one page and writes the records of every kept repo.
// It returns the number of repos on the page
func (c *Collector) collectPage(ctx context.Context, q string, page int, sum *Summary) (int, error) {
	log := logger.C(ctx)
	repos := c.searchPage(ctx, q, page)
	sum.Pages++

	pageReleases := 0
	for i, r := range repos {
		log.Info().Int("page", page).Int("n", i+1).Int("of", len(repos)).Str("repo", r.FullName).Msg("collecting repo")
		recs, err := c.collectRepo(ctx, r)
		if err != nil {
			return len(repos), err
		}
		for _, rec := range recs {
			if !rec.StarsComplete {
				sum.Incomplete++
			}
		}
		sum.SinkErrors += c.write(ctx, recs)
		pageReleases += len(recs)
	}
	sum.Repos += len(repos)
	sum.Releases += pageReleases
	log.Info().Int("page", page).Int("repos", len(repos)).Int("releases", pageReleases).Msg("page done")
	return len(repos), nil
}

// searchPage returns the repos of one page that pass the size filter
func (c *Collector) searchPage(ctx context.Context, q string, page int) []github.Repo {
	res, err := c.gh.SearchRepositories(ctx, github.SearchQuery{
		Q: q, Sort: "updated", Order: "desc", PerPage: c.cfg.PerPage, Page: page,
	})
	if err != nil {
		logger.C(ctx).Error().Err(err).Int("page", page).Msg("repository search failed")
		return nil
	}
	out := make([]github.Repo, 0, len(res.Items))
	for _, r := range res.Items {
		if r.Size > c.cfg.MinSize {
			out = append(out, r)
		}
	}
	return out
}

// collectRepo builds the records for the newest releases of r.
// Only a canceled ctx is returned as an error
func (c *Collector) collectRepo(ctx context.Context, r github.Repo) ([]domain.Record, error) {
	log := logger.C(ctx).With().Str("repo", r.FullName).Logger()

	owner, name, ok := github.SplitFullName(r.FullName)
	if !ok {
		log.Warn().Msg("unexpected repository name")
		return nil, nil
	}
	rels, err := c.gh.ListReleases(ctx, owner, name, c.cfg.MaxReleases)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error().Err(err).Msg("list releases failed")
		return nil, nil
	}
	if len(rels) > c.cfg.MaxReleases {
		rels = rels[:c.cfg.MaxReleases]
	}
	if len(rels) == 0 {
		return nil, nil
	}

	author := c.authorOf(ctx, r.Owner.Login)
	topics := normalize.Topics(r.Topics)

	// release starts are paced; counts run concurrently up to cfg.Concurrency
	pace := rate.NewLimiter(rate.Inf, 1)
	if c.cfg.ReleaseDelay > 0 {
		pace = rate.NewLimiter(rate.Every(c.cfg.ReleaseDelay), 1)
	}

	slots := make([]*domain.Record, len(rels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.cfg.Concurrency, 1))
	for i, rel := range rels {
		if rel.Draft || rel.PublishedAt == nil {
			log.Debug().Str("tag", rel.TagName).Msg("skipping unpublished release")
			continue
		}
		if err := pace.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			rec, err := c.buildRecord(gctx, r, rel, author, topics)
			if err != nil {
				return err
			}
			slots[i] = &rec
			log.Info().Str("tag", rel.TagName).Int("first_week_stars", rec.FirstWeekStars).Bool("complete", rec.StarsComplete).Msg("release collected")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Record, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

// buildRecord counts first-week stars for rel. An incomplete count is kept;
// only cancellation fails
func (c *Collector) buildRecord(ctx context.Context, r github.Repo, rel github.Release, a domain.Author, topics []string) (domain.Record, error) {
	pub := ptime.Deref(rel.PublishedAt).UTC()
	res, err := window.Count(ctx, r.FullName, window.Days(pub, c.cfg.WindowDays), c.stars,
		window.WithPacer(window.Sleep(c.cfg.StarPageDelay)),
		window.WithObserver(func(st window.PageStat) { c.metrics.WindowPage(st.Contributed) }),
	)
	c.metrics.WindowDone(string(res.Stop))
	if err != nil {
		if ctx.Err() != nil {
			return domain.Record{}, err
		}
		logger.C(ctx).Warn().Err(err).
			Str("repo", r.FullName).Str("tag", rel.TagName).
			Int("partial", res.Count).Int("pages", res.Pages).
			Msg("first-week star count incomplete")
	}

	rec := domain.Record{
		FullName:       r.FullName + "/" + rel.TagName,
		RepoStars:      r.Stargazers,
		RepoForks:      r.ForksCount,
		RepoWatchers:   r.WatchersCount,
		Language:       r.Language,
		RepoCreatedAt:  r.CreatedAt.UTC(),
		RepoUpdatedAt:  r.UpdatedAt.UTC(),
		Topics:         topics,
		ReleaseName:    normalize.Text(rel.Name),
		ReleaseBody:    normalize.Truncate(normalize.Text(rel.Body), maxBodyRunes),
		PublishedAt:    pub,
		Prerelease:     rel.Prerelease,
		Draft:          rel.Draft,
		FirstWeekStars: res.Count,
		StarsComplete:  err == nil && res.Complete,
		RunID:          logger.RunID(ctx),
		CollectedAt:    c.now().UTC(),
	}
	return rec.WithAuthor(a), nil
}

// authorOf looks up the repository owner. Failures degrade to Unknown
func (c *Collector) authorOf(ctx context.Context, login string) domain.Author {
	if login == "" {
		return domain.UnknownAuthorFeatures()
	}
	u, err := c.gh.UserByLogin(ctx, login)
	if err != nil {
		if !github.IsNotFound(err) {
			logger.C(ctx).Warn().Err(err).Str("login", login).Msg("author lookup failed")
		}
		return domain.UnknownAuthorFeatures()
	}
	t := u.Type
	if t == "" {
		t = domain.UnknownAuthor
	}
	return domain.Author{Followers: u.Followers, PublicRepos: u.PublicRepos, Type: t}
}

// write fans recs out to every sink and returns the number of failed sinks
func (c *Collector) write(ctx context.Context, recs []domain.Record) int {
	if len(recs) == 0 {
		return 0
	}
	failed := 0
	for _, s := range c.sinks {
		if err := s.Write(ctx, recs); err != nil {
			failed++
			for range recs {
				c.metrics.RecordWritten(s.Name(), "error")
			}
			logger.C(ctx).Error().Err(err).Str("sink", s.Name()).Int("records", len(recs)).Msg("sink write failed")
			continue
		}
		for range recs {
			c.metrics.RecordWritten(s.Name(), "ok")
		}
	}
	return failed
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	return window.Sleep(d)(ctx, 0)
}
