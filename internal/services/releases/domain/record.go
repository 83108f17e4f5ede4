// Package domain holds the release record and the ports the collector and API share
package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	ptime "releasepulse/internal/platform/time"
)

// UnknownAuthor is the author type used when the owner lookup fails
const UnknownAuthor = "Unknown"

// Author holds the owner features attached to every release of a repo
type Author struct {
	Followers   int
	PublicRepos int
	Type        string
}

// UnknownAuthorFeatures is the zero author used on lookup failure
func UnknownAuthorFeatures() Author { return Author{Type: UnknownAuthor} }

// Record is one collected release with its repo context and first-week stars
type Record struct {
	FullName          string    `json:"full_name"` // owner/repo/tag
	RepoStars         int       `json:"repo_stars"`
	RepoForks         int       `json:"repo_forks"`
	RepoWatchers      int       `json:"repo_watchers"`
	Language          string    `json:"language"`
	RepoCreatedAt     time.Time `json:"repo_created_at"`
	RepoUpdatedAt     time.Time `json:"repo_updated_at"`
	Topics            []string  `json:"topics"`
	ReleaseName       string    `json:"release_name"`
	ReleaseBody       string    `json:"release_body"`
	AuthorFollowers   int       `json:"author_followers"`
	AuthorPublicRepos int       `json:"author_public_repos"`
	AuthorType        string    `json:"author_type"`
	PublishedAt       time.Time `json:"published_at"`
	Prerelease        bool      `json:"prerelease"`
	Draft             bool      `json:"draft"`
	FirstWeekStars    int       `json:"first_week_star"`
	StarsComplete     bool      `json:"stars_complete"`
	RunID             string    `json:"run_id"`
	CollectedAt       time.Time `json:"collected_at"`
}

// WithAuthor copies owner features onto r
func (r Record) WithAuthor(a Author) Record {
	r.AuthorFollowers, r.AuthorPublicRepos, r.AuthorType = a.Followers, a.PublicRepos, a.Type
	return r
}

// Columns is the dataset column order shared by every tabular sink
var Columns = []string{
	"full_name", "repo_stars", "repo_forks", "repo_watchers", "language",
	"repo_created_at", "repo_updated_at", "topics", "release_name", "release_body",
	"author_followers", "author_public_repos", "author_type", "published_at",
	"prerelease", "draft", "first_week_star", "stars_complete", "run_id", "collected_at",
}

// Strings renders r in Columns order. Times are RFC 3339 UTC, topics a JSON array
func (r Record) Strings() []string {
	return []string{
		r.FullName,
		strconv.Itoa(r.RepoStars),
		strconv.Itoa(r.RepoForks),
		strconv.Itoa(r.RepoWatchers),
		r.Language,
		ptime.RFC3339(r.RepoCreatedAt),
		ptime.RFC3339(r.RepoUpdatedAt),
		TopicsJSON(r.Topics),
		r.ReleaseName,
		r.ReleaseBody,
		strconv.Itoa(r.AuthorFollowers),
		strconv.Itoa(r.AuthorPublicRepos),
		r.AuthorType,
		ptime.RFC3339(r.PublishedAt),
		strconv.FormatBool(r.Prerelease),
		strconv.FormatBool(r.Draft),
		strconv.Itoa(r.FirstWeekStars),
		strconv.FormatBool(r.StarsComplete),
		r.RunID,
		ptime.RFC3339(r.CollectedAt),
	}
}

// TopicsJSON encodes topics as a JSON array; nil becomes []
func TopicsJSON(topics []string) string {
	if topics == nil {
		topics = []string{}
	}
	b, _ := json.Marshal(topics)
	return string(b)
}

// ParseTopics decodes a JSON array written by TopicsJSON; empty input is no topics
func ParseTopics(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Repo returns the owner/name part of FullName; tags may contain slashes
func (r Record) Repo() string {
	i := strings.IndexByte(r.FullName, '/')
	if i < 0 {
		return r.FullName
	}
	j := strings.IndexByte(r.FullName[i+1:], '/')
	if j < 0 {
		return r.FullName
	}
	return r.FullName[:i+1+j]
}
