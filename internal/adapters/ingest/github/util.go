package github

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// GHStatusError wraps non-2xx HTTP responses from GitHub
type GHStatusError struct {
	Status int
	Body   string
	Err    error
}

// Error interface
func (e *GHStatusError) Error() string {
	if e.Body == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + " body " + e.Body
}

// Unwrap interface
func (e *GHStatusError) Unwrap() error { return e.Err }

// HTTPStatus interface
func (e *GHStatusError) HTTPStatus() int { return e.Status }

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var gse *GHStatusError
	if errors.As(err, &gse) {
		return gse.Status
	}
	return 0
}

// IsNotFound reports a 404 from GitHub
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// IsRateLimited reports whether err is a GHStatusError with 429 or 403 status
func IsRateLimited(err error) bool {
	s := StatusOf(err)
	return s == http.StatusTooManyRequests || s == http.StatusForbidden
}

func parseRateHeaders(h http.Header) (remaining int, reset time.Time, retryAfter int) {
	remaining = -1
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		remaining = atoi(v)
	}
	if sec := atoi(h.Get("X-RateLimit-Reset")); sec > 0 {
		reset = time.Unix(int64(sec), 0).UTC()
	}
	retryAfter = atoi(h.Get("Retry-After"))
	return
}

// computeWait decides how long to wait based on headers
func computeWait(remaining int, reset time.Time, retryAfter int, now time.Time) time.Duration {
	if retryAfter > 0 {
		return time.Duration(retryAfter) * time.Second
	}
	if remaining == 0 && !reset.IsZero() && reset.After(now) {
		return reset.Sub(now)
	}
	return 0
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	i, _ := strconv.Atoi(strings.TrimSpace(s))
	return i
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}

// endpointLabel maps a request path to a low cardinality metric label
func endpointLabel(path string) string {
	p, _, _ := strings.Cut(path, "?")
	parts := strings.Split(strings.Trim(p, "/"), "/")
	switch {
	case len(parts) >= 2 && parts[0] == "search":
		return "search_" + parts[1]
	case parts[0] == "users":
		return "user"
	case parts[0] == "rate_limit":
		return "rate_limit"
	case parts[0] == "repos" && len(parts) == 3:
		return "repo"
	case parts[0] == "repos" && len(parts) >= 4:
		return parts[3]
	}
	return "other"
}

// SplitFullName splits "owner/name"
func SplitFullName(full string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}
