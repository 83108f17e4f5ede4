// Package chsink writes release records to a ClickHouse table
package chsink

import (
	"context"
	"fmt"

	"releasepulse/internal/platform/store"
	ptime "releasepulse/internal/platform/time"
	"releasepulse/internal/services/releases/domain"
)

// DefaultTable is used when New gets an empty table name
const DefaultTable = "release_records"

// ddl keeps column order in step with row()
const ddl = `
CREATE TABLE IF NOT EXISTS %s (
	full_name           String,
	repo                LowCardinality(String),
	repo_stars          Int64,
	repo_forks          Int64,
	repo_watchers       Int64,
	language            LowCardinality(String),
	repo_created_at     Nullable(DateTime64(3, 'UTC')),
	repo_updated_at     Nullable(DateTime64(3, 'UTC')),
	topics              Array(String),
	release_name        String,
	release_body        String,
	author_followers    Int64,
	author_public_repos Int64,
	author_type         LowCardinality(String),
	published_at        DateTime64(3, 'UTC'),
	prerelease          Bool,
	draft               Bool,
	first_week_star     Int64,
	stars_complete      Bool,
	run_id              String,
	collected_at        DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree(collected_at)
ORDER BY (repo, full_name)`

// Sink batches records into one ClickHouse insert per Write
type Sink struct {
	ch    store.Clickhouse
	table string
}

// New wraps an open ClickHouse seam
func New(ch store.Clickhouse, table string) *Sink {
	if ch == nil {
		panic("chsink requires a non nil Clickhouse")
	}
	if table == "" {
		table = DefaultTable
	}
	return &Sink{ch: ch, table: table}
}

// Name implements domain.Sink
func (s *Sink) Name() string { return "clickhouse" }

// EnsureTable creates the table when missing
func (s *Sink) EnsureTable(ctx context.Context) error {
	return s.ch.Exec(ctx, fmt.Sprintf(ddl, s.table))
}

// Write implements domain.Sink
func (s *Sink) Write(ctx context.Context, recs []domain.Record) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, row(r))
	}
	if err := s.ch.Insert(ctx, s.table, rows); err != nil {
		return fmt.Errorf("chsink: insert %d rows: %w", len(rows), err)
	}
	return nil
}

func row(r domain.Record) []any {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return []any{
		r.FullName, r.Repo(),
		int64(r.RepoStars), int64(r.RepoForks), int64(r.RepoWatchers),
		r.Language,
		ptime.Ptr(r.RepoCreatedAt), ptime.Ptr(r.RepoUpdatedAt),
		topics,
		r.ReleaseName, r.ReleaseBody,
		int64(r.AuthorFollowers), int64(r.AuthorPublicRepos), r.AuthorType,
		r.PublishedAt.UTC(),
		r.Prerelease, r.Draft,
		int64(r.FirstWeekStars), r.StarsComplete,
		r.RunID, r.CollectedAt.UTC(),
	}
}

var _ domain.Sink = (*Sink)(nil)
