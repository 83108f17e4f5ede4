// Package repo provides postgres access for collected releases
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"releasepulse/internal/modkit/repokit"
	"releasepulse/internal/platform/store"
	"releasepulse/internal/services/releases/domain"
)

// Schema creates the releases table. Safe to run on every start
const Schema = `
create table if not exists releases (
	full_name           text primary key,
	repo                text not null,
	repo_stars          integer not null,
	repo_forks          integer not null,
	repo_watchers       integer not null,
	language            text not null default '',
	repo_created_at     timestamptz,
	repo_updated_at     timestamptz,
	topics              text[] not null default '{}',
	release_name        text not null default '',
	release_body        text not null default '',
	author_followers    integer not null default 0,
	author_public_repos integer not null default 0,
	author_type         text not null default 'Unknown',
	published_at        timestamptz not null,
	prerelease          boolean not null default false,
	draft               boolean not null default false,
	first_week_star     integer not null,
	stars_complete      boolean not null,
	run_id              text not null,
	collected_at        timestamptz not null
);
create index if not exists releases_repo_published_idx on releases (repo, published_at desc);
create table if not exists release_page_leases (
	day        date not null,
	query      text not null,
	page       integer not null,
	run_id     text not null,
	claimed_at timestamptz not null default now(),
	primary key (day, query, page)
);
`

// Repo is the persistence surface for releases
type Repo interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, recs []domain.Record) error
	List(ctx context.Context, repo string, limit, offset int) ([]domain.Record, error)
	Count(ctx context.Context, repo string) (int, error)
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const cols = 21

func (r *queries) EnsureSchema(ctx context.Context) error {
	_, err := r.q.Exec(ctx, Schema)
	return err
}

// Upsert writes recs; a re-collected release replaces the earlier row
func (r *queries) Upsert(ctx context.Context, recs []domain.Record) error {
	if len(recs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`insert into releases
	(full_name, repo, repo_stars, repo_forks, repo_watchers, language,
	repo_created_at, repo_updated_at, topics, release_name, release_body,
	author_followers, author_public_repos, author_type, published_at,
	prerelease, draft, first_week_star, stars_complete, run_id, collected_at) values `)

	args := make([]any, 0, len(recs)*cols)
	for i, x := range recs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for c := range cols {
			if c > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", i*cols+c+1)
		}
		sb.WriteByte(')')

		topics := x.Topics
		if topics == nil {
			topics = []string{}
		}
		args = append(args,
			x.FullName, x.Repo(), x.RepoStars, x.RepoForks, x.RepoWatchers, x.Language,
			nullTime(x.RepoCreatedAt), nullTime(x.RepoUpdatedAt), topics, x.ReleaseName, x.ReleaseBody,
			x.AuthorFollowers, x.AuthorPublicRepos, x.AuthorType, x.PublishedAt.UTC(),
			x.Prerelease, x.Draft, x.FirstWeekStars, x.StarsComplete, x.RunID, x.CollectedAt.UTC(),
		)
	}
	sb.WriteString(`
on conflict (full_name) do update set
	repo_stars = excluded.repo_stars,
	repo_forks = excluded.repo_forks,
	repo_watchers = excluded.repo_watchers,
	repo_updated_at = excluded.repo_updated_at,
	topics = excluded.topics,
	release_name = excluded.release_name,
	release_body = excluded.release_body,
	author_followers = excluded.author_followers,
	author_public_repos = excluded.author_public_repos,
	author_type = excluded.author_type,
	first_week_star = excluded.first_week_star,
	stars_complete = excluded.stars_complete,
	run_id = excluded.run_id,
	collected_at = excluded.collected_at`)

	_, err := r.q.Exec(ctx, sb.String(), args...)
	return err
}

func (r *queries) List(ctx context.Context, repo string, limit, offset int) ([]domain.Record, error) {
	const sql = `
select full_name, repo_stars, repo_forks, repo_watchers, language,
	coalesce(repo_created_at, 'epoch'::timestamptz), coalesce(repo_updated_at, 'epoch'::timestamptz),
	topics, release_name, release_body,
	author_followers, author_public_repos, author_type, published_at,
	prerelease, draft, first_week_star, stars_complete, run_id, collected_at
from releases
where ($1 = '' or repo = $1)
order by published_at desc, full_name asc
limit $2 offset $3
`
	rows, err := r.q.Query(ctx, sql, repo, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Record, 0, limit)
	for rows.Next() {
		var x domain.Record
		if err := rows.Scan(
			&x.FullName, &x.RepoStars, &x.RepoForks, &x.RepoWatchers, &x.Language,
			&x.RepoCreatedAt, &x.RepoUpdatedAt,
			&x.Topics, &x.ReleaseName, &x.ReleaseBody,
			&x.AuthorFollowers, &x.AuthorPublicRepos, &x.AuthorType, &x.PublishedAt,
			&x.Prerelease, &x.Draft, &x.FirstWeekStars, &x.StarsComplete, &x.RunID, &x.CollectedAt,
		); err != nil {
			return nil, err
		}
		x.RepoCreatedAt = unepoch(x.RepoCreatedAt)
		x.RepoUpdatedAt = unepoch(x.RepoUpdatedAt)
		out = append(out, x)
	}
	return out, rows.Err()
}

func (r *queries) Count(ctx context.Context, repo string) (int, error) {
	return store.Scalar[int](ctx, r.q, `select count(*) from releases where ($1 = '' or repo = $1)`, repo)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// unepoch turns the coalesced null back into a zero time
func unepoch(t time.Time) time.Time {
	if t.Unix() == 0 {
		return time.Time{}
	}
	return t.UTC()
}
