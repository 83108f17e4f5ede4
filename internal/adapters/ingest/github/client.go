// Package github provides a resilient GitHub REST v3 client for the release
// collector and topic enrichment
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"releasepulse/internal/platform/config"
	perr "releasepulse/internal/platform/errors"
	"releasepulse/internal/platform/logger"
	"releasepulse/internal/platform/metrics"

	"golang.org/x/time/rate"
)

const (
	baseURLDefault   = "https://api.github.com"
	defaultTimeout   = 10 * time.Second
	defaultUA        = "releasepulse"
	defaultMaxRetry  = 5
	defaultRetryBase = 500 * time.Millisecond
	maxBackoff       = 30 * time.Second

	acceptJSON = "application/vnd.github+json"
	acceptStar = "application/vnd.github.star+json"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Comma separated tokens; empty means anonymous (60 req/h)
	TokensCSV string

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration

	// Client side pacing; RPS <= 0 disables the limiter
	RPS   float64
	Burst int

	Metrics *metrics.Manager
}

// OptionsFromEnv reads GITHUB_* keys. GITHUB_TOKENS wins over GITHUB_TOKEN
func OptionsFromEnv(c config.Conf, m *metrics.Manager) Options {
	return Options{
		BaseURL:    c.MayURL("BASE_URL", baseURLDefault),
		UserAgent:  c.MayString("USER_AGENT", defaultUA),
		Timeout:    c.MayDuration("TIMEOUT", defaultTimeout),
		TokensCSV:  c.MayString("TOKENS", c.MayString("TOKEN", "")),
		MaxRetries: c.MayInt("MAX_RETRIES", defaultMaxRetry),
		RetryBase:  c.MayDuration("RETRY_BASE", defaultRetryBase),
		RPS:        c.MayFloat64("RPS", 0),
		Burst:      c.MayInt("BURST", 1),
		Metrics:    m,
	}
}

// Client is a GitHub REST client with token rotation, pacing and retries.
// Safe for concurrent use
type Client struct {
	http    *http.Client
	opts    Options
	tokens  []string
	cur     atomic.Int32
	limiter *rate.Limiter
	log     logger.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}

	lim := rate.NewLimiter(rate.Inf, 1)
	if o.RPS > 0 {
		if o.Burst <= 0 {
			o.Burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(o.RPS), o.Burst)
	}

	var toks []string
	for t := range strings.SplitSeq(o.TokensCSV, ",") {
		if t = strings.TrimSpace(t); t != "" {
			toks = append(toks, t)
		}
	}
	return &Client{
		http:    &http.Client{Timeout: o.Timeout},
		opts:    o,
		tokens:  toks,
		limiter: lim,
		log:     *logger.Named("github"),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// HasToken reports whether at least one token is configured
func (c *Client) HasToken() bool { return len(c.tokens) > 0 }

// getToken returns the next token in a round robin rotation
func (c *Client) getToken() string {
	n := int(c.cur.Add(1))
	if len(c.tokens) == 0 {
		return ""
	}
	return c.tokens[n%len(c.tokens)]
}

// Do issues a GET-style request with auth, pacing, retries and rate limit handling.
// accept overrides the default media type when set. Any non-2xx response that is
// not retried comes back as *GHStatusError
func (c *Client) Do(ctx context.Context, method, path, accept string) (*http.Response, error) {
	url := c.opts.BaseURL + path
	if accept == "" {
		accept = acceptJSON
	}
	ep := endpointLabel(path)

	for attempts := 0; ; attempts++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "github new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", accept)
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if tok := c.getToken(); tok != "" {
			req.Header.Set("Authorization", "token "+tok)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github %s failed", ep)
			}
			back := c.backoff(attempts)
			c.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", attempts).Msg("github transport error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, err
			}
			continue
		}

		rem, reset, retryAfter := parseRateHeaders(resp.Header)
		c.opts.Metrics.GitHubResponse(ep, resp.StatusCode, lat, rem)
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Int("rate_remaining", rem).
			Time("rate_reset", reset).
			Int("retry_after_s", retryAfter).
			Msg("github http response")

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case isRateLimitResponse(resp.StatusCode, rem, retryAfter):
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return nil, statusErr(resp.StatusCode, "", perr.Newf(perr.ErrorCodeTooManyRequests, "github %s rate limited", ep))
			}
			wait := computeWait(rem, reset, retryAfter, c.now())
			if wait <= 0 {
				wait = c.backoff(attempts)
			}
			c.log.Warn().Dur("sleep", wait).Str("endpoint", ep).Msg("github rate limited backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode == http.StatusBadGateway,
			resp.StatusCode == http.StatusServiceUnavailable,
			resp.StatusCode == http.StatusGatewayTimeout:
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return nil, statusErr(resp.StatusCode, "", perr.Newf(perr.ErrorCodeUnavailable, "github %s transient server error", ep))
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Int("status", resp.StatusCode).Msg("github transient error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, err
			}
			continue

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, statusErr(resp.StatusCode, string(body), nil)
		}
	}
}

func statusErr(status int, body string, cause error) *GHStatusError {
	if cause == nil {
		code := perr.ErrorCodeUnknown
		switch status {
		case http.StatusNotFound:
			code = perr.ErrorCodeNotFound
		case http.StatusUnprocessableEntity:
			code = perr.ErrorCodeInvalidArgument
		case http.StatusForbidden, http.StatusUnauthorized:
			code = perr.ErrorCodeUnavailable
		}
		cause = perr.New(code, fmt.Sprintf("github unexpected status %d", status))
	}
	return &GHStatusError{Status: status, Body: body, Err: cause}
}

// isRateLimitResponse separates quota exhaustion from plain permission errors
func isRateLimitResponse(status, remaining, retryAfter int) bool {
	switch status {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return retryAfter > 0 || remaining == 0
	}
	return false
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
