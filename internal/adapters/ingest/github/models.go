package github

import "time"

// Repo is a partial GitHub repository document with fields we use
type Repo struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         User      `json:"owner"`
	Language      string    `json:"language"`
	Size          int       `json:"size"`
	ForksCount    int       `json:"forks_count"`
	Stargazers    int       `json:"stargazers_count"`
	WatchersCount int       `json:"watchers_count"`
	Topics        []string  `json:"topics"`
	Fork          bool      `json:"fork"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	HTMLURL       string    `json:"html_url"`
}

// User is a partial GitHub user or org document
type User struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Type        string `json:"type"`
	Followers   int    `json:"followers"`
	PublicRepos int    `json:"public_repos"`
}

// Release is a partial GitHub release document. PublishedAt is nil for drafts
type Release struct {
	ID          int64      `json:"id"`
	TagName     string     `json:"tag_name"`
	Name        string     `json:"name"`
	Body        string     `json:"body"`
	Draft       bool       `json:"draft"`
	Prerelease  bool       `json:"prerelease"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at"`
	Author      User       `json:"author"`
}

// Stargazer is one entry of the star+json stargazers listing.
// StarredAt stays raw so the feed can reject bad timestamps itself
type Stargazer struct {
	StarredAt string `json:"starred_at"`
	User      User   `json:"user"`
}

// SearchResult is the envelope of /search/repositories
type SearchResult struct {
	TotalCount        int    `json:"total_count"`
	IncompleteResults bool   `json:"incomplete_results"`
	Items             []Repo `json:"items"`
}

// SearchQuery parameters for /search/repositories
type SearchQuery struct {
	Q       string
	Sort    string
	Order   string
	PerPage int
	Page    int
}

// RateBucket is one budget of /rate_limit
type RateBucket struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Used      int   `json:"used"`
	Reset     int64 `json:"reset"` // unix seconds
}

// ResetAt returns Reset as a UTC time
func (b RateBucket) ResetAt() time.Time { return time.Unix(b.Reset, 0).UTC() }

// RateLimit is the /rate_limit document; Rate is the core REST budget
type RateLimit struct {
	Rate RateBucket `json:"rate"`
}
