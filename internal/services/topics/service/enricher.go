// Package service enriches a repository CSV with GitHub topics
package service

import (
	"context"
	"errors"
	"time"

	"releasepulse/internal/adapters/ingest/github"
	"releasepulse/internal/core/normalize"
	"releasepulse/internal/platform/config"
	"releasepulse/internal/platform/logger"
	"releasepulse/internal/platform/metrics"
	"releasepulse/internal/services/releases/domain"
	topicsdom "releasepulse/internal/services/topics/domain"
)

// Config controls one enrichment pass
type Config struct {
	Input  string // CSV with a repo_name column; rewritten in place at the end
	Output string // defaults to Input

	Skip            int // rows with index < Skip keep their topics
	CheckpointEvery int // <=0 -> 50
	ProgressEvery   int // <=0 -> 200

	// Delay between lookups; <0 picks 800ms with a token, 2s without
	Delay time.Duration
}

// ConfigFromEnv reads TOPICS_* settings
func ConfigFromEnv(c config.Conf) Config {
	return Config{
		Input:           c.MayString("INPUT", "data/trending_history.csv"),
		Output:          c.MayString("OUTPUT", ""),
		Skip:            c.MayInt("SKIP", 0),
		CheckpointEvery: c.MayInt("CHECKPOINT_EVERY", 50),
		ProgressEvery:   c.MayInt("PROGRESS_EVERY", 200),
		Delay:           c.MayDuration("DELAY", -1),
	}
}

// Summary counts row outcomes
type Summary struct {
	Rows    int `json:"rows"`
	OK      int `json:"ok"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Enricher fills the topics column from the GitHub repository API
type Enricher struct {
	gh      topicsdom.RepoFetcher
	cfg     Config
	metrics *metrics.Manager
	sleep   func(context.Context, time.Duration) error
}

// DelayFor returns the pacing between lookups for a client with or without a token
func DelayFor(hasToken bool) time.Duration {
	if hasToken {
		return 800 * time.Millisecond
	}
	return 2 * time.Second
}

// New constructs an Enricher
func New(gh topicsdom.RepoFetcher, cfg Config, m *metrics.Manager) *Enricher {
	if gh == nil {
		panic("topics.Enricher requires a RepoFetcher")
	}
	if cfg.Output == "" {
		cfg.Output = cfg.Input
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 50
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 200
	}
	if cfg.Delay < 0 {
		hasToken := false
		if c, ok := gh.(interface{ HasToken() bool }); ok {
			hasToken = c.HasToken()
		}
		cfg.Delay = DelayFor(hasToken)
	}
	return &Enricher{gh: gh, cfg: cfg, metrics: m, sleep: sleepCtx}
}

// Run enriches every row from Skip on. On cancellation the last checkpoint is
// kept and the input file is left untouched
func (e *Enricher) Run(ctx context.Context) (Summary, error) {
	log := logger.Named("topics")

	t, err := ReadTable(e.cfg.Input)
	if err != nil {
		return Summary{}, err
	}
	repoCol := t.Col(topicsdom.RepoColumn)
	if repoCol < 0 {
		return Summary{}, errors.New("topics: input has no repo_name column")
	}
	topicCol := t.EnsureCol(topicsdom.TopicsColumn, "[]")
	checkpoint := CheckpointPath(e.cfg.Input)

	var sum Summary
	for i, row := range t.Rows {
		if i < e.cfg.Skip {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Rows++

		full := row[repoCol]
		if full == "" {
			sum.Skipped++
			e.metrics.TopicRow("skipped")
			continue
		}
		topics, err := e.lookup(ctx, full)
		switch {
		case err != nil && ctx.Err() != nil:
			return sum, ctx.Err()
		case err != nil:
			sum.Failed++
			e.metrics.TopicRow("error")
			log.Warn().Err(err).Int("row", i).Str("repo", full).Msg("topic lookup failed")
		default:
			sum.OK++
			e.metrics.TopicRow("ok")
		}
		row[topicCol] = domain.TopicsJSON(topics)

		if (i+1)%e.cfg.CheckpointEvery == 0 {
			if err := WriteTable(checkpoint, t); err != nil {
				log.Error().Err(err).Str("path", checkpoint).Msg("checkpoint failed")
			}
		}
		if (i+1)%e.cfg.ProgressEvery == 0 {
			log.Info().Int("row", i+1).Int("of", len(t.Rows)).Msg("rows done")
		}
		if i == len(t.Rows)-1 {
			break
		}
		if err := e.sleep(ctx, e.cfg.Delay); err != nil {
			return sum, err
		}
	}

	if err := WriteTable(e.cfg.Output, t); err != nil {
		return sum, err
	}
	log.Info().Str("path", e.cfg.Output).Int("ok", sum.OK).Int("failed", sum.Failed).Int("skipped", sum.Skipped).Msg("topics written")
	return sum, nil
}

// lookup returns normalized topics; a failed lookup yields an empty list and the error
func (e *Enricher) lookup(ctx context.Context, full string) ([]string, error) {
	owner, name, ok := github.SplitFullName(full)
	if !ok {
		return []string{}, errors.New("topics: bad repo_name " + full)
	}
	r, err := e.gh.RepoByFullName(ctx, owner, name)
	if err != nil {
		return []string{}, err
	}
	return normalize.Topics(r.Topics), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
