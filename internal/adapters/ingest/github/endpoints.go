package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	perr "releasepulse/internal/platform/errors"
)

const maxBody = 4 << 20

// getJSON fetches path and decodes the body into out
func (c *Client) getJSON(ctx context.Context, path, accept string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, accept)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("github close body failed")
		}
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "github read %s", endpointLabel(path))
	}
	if err := json.Unmarshal(b, out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "github decode %s", endpointLabel(path))
	}
	return nil
}

func repoPath(owner, name string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
}

// SearchRepositories runs a repository search
func (c *Client) SearchRepositories(ctx context.Context, q SearchQuery) (SearchResult, error) {
	v := url.Values{}
	v.Set("q", q.Q)
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	var out SearchResult
	err := c.getJSON(ctx, "/search/repositories?"+v.Encode(), "", &out)
	return out, err
}

// ListReleases returns the newest releases of a repo, first page only
func (c *Client) ListReleases(ctx context.Context, owner, name string, perPage int) ([]Release, error) {
	path := repoPath(owner, name) + "/releases"
	if perPage > 0 {
		path += "?per_page=" + strconv.Itoa(perPage)
	}
	var out []Release
	err := c.getJSON(ctx, path, "", &out)
	return out, err
}

// UserByLogin fetches a user or organization profile
func (c *Client) UserByLogin(ctx context.Context, login string) (User, error) {
	var out User
	err := c.getJSON(ctx, "/users/"+url.PathEscape(login), "", &out)
	return out, err
}

// RepoByFullName fetches a repository by owner and name
func (c *Client) RepoByFullName(ctx context.Context, owner, name string) (Repo, error) {
	var out Repo
	err := c.getJSON(ctx, repoPath(owner, name), "", &out)
	return out, err
}

// Stargazers returns one page of stargazers with starred_at timestamps,
// oldest first as GitHub serves them
func (c *Client) Stargazers(ctx context.Context, owner, name string, page, perPage int) ([]Stargazer, error) {
	path := fmt.Sprintf("%s/stargazers?per_page=%d&page=%d", repoPath(owner, name), perPage, page)
	var out []Stargazer
	err := c.getJSON(ctx, path, acceptStar, &out)
	return out, err
}

// RateLimit reads the current budget. The call itself is not counted against it
func (c *Client) RateLimit(ctx context.Context) (RateLimit, error) {
	var out RateLimit
	err := c.getJSON(ctx, "/rate_limit", "", &out)
	return out, err
}

// Ping checks that GitHub answers and the core budget is not spent
func (c *Client) Ping(ctx context.Context) error {
	rl, err := c.RateLimit(ctx)
	if err != nil {
		return err
	}
	if rl.Rate.Limit > 0 && rl.Rate.Remaining == 0 {
		return perr.Newf(perr.ErrorCodeUnavailable, "github rate budget exhausted until %s", rl.Rate.ResetAt().Format(time.RFC3339))
	}
	return nil
}
