// Package domain holds the topic enrichment ports and table shape
package domain

import (
	"context"

	"releasepulse/internal/adapters/ingest/github"
)

// Column names the enrichment reads and writes
const (
	RepoColumn   = "repo_name"
	TopicsColumn = "topics"
)

// RepoFetcher loads one repository document
type RepoFetcher interface {
	RepoByFullName(ctx context.Context, owner, name string) (github.Repo, error)
}

// Table is a CSV file held in memory; Rows exclude the header
type Table struct {
	Header []string
	Rows   [][]string
}

// Col returns the index of name in Header, or -1
func (t *Table) Col(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// EnsureCol returns the index of name, appending an empty column when missing
func (t *Table) EnsureCol(name string, fill string) int {
	if i := t.Col(name); i >= 0 {
		return i
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], fill)
	}
	return len(t.Header) - 1
}
