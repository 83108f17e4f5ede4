// Package service counts repository stars inside a time window
package service

import (
	"context"
	"errors"
	"time"

	"releasepulse/internal/core/window"
	perr "releasepulse/internal/platform/errors"
	"releasepulse/internal/platform/logger"
	"releasepulse/internal/platform/metrics"
	"releasepulse/internal/services/api/windows/domain"
)

// Svc implements domain.ServicePort over a star feed
type Svc struct {
	feed    window.Fetcher
	pace    time.Duration
	metrics *metrics.Manager
}

// New constructs a windows service. pace is the pause between feed pages
func New(feed window.Fetcher, pace time.Duration, m *metrics.Manager) *Svc {
	if feed == nil {
		panic("windows.Service requires a non nil Fetcher")
	}
	return &Svc{feed: feed, pace: pace, metrics: m}
}

// Count runs one windowed count and maps counter failures to API errors
func (s *Svc) Count(ctx context.Context, in domain.CountInput) (domain.CountResult, error) {
	w := window.Days(in.Anchor, in.Days)
	res, err := window.Count(ctx, in.Repo, w, s.feed,
		window.WithPacer(window.Sleep(s.pace)),
		window.WithObserver(func(st window.PageStat) { s.metrics.WindowPage(st.Contributed) }),
	)
	s.metrics.WindowDone(string(res.Stop))

	out := domain.CountResult{Repo: in.Repo, From: w.Anchor, Until: w.End(), Result: res}
	if err != nil {
		logger.C(ctx).Warn().Err(err).
			Str("repo", in.Repo).Str("window", w.String()).
			Int("partial", res.Count).Int("pages", res.Pages).Str("stop", string(res.Stop)).
			Msg("window count failed")
		return out, mapErr(err, res)
	}
	return out, nil
}

// mapErr checks counter sentinels before any coded error the feed wrapped
func mapErr(err error, res window.Result) error {
	switch {
	case errors.Is(err, window.ErrInvalidWindow):
		return perr.WithField(perr.Wrap(err, perr.ErrorCodeInvalidArgument, "anchor must be set"), "anchor")
	case errors.Is(err, window.ErrMalformedEvent), errors.Is(err, window.ErrOutOfOrderFeed):
		return perr.Wrapf(err, perr.ErrorCodeDataQuality, "star feed is not usable after %d pages", res.Pages)
	case errors.Is(err, window.ErrFeedUnavailable):
		return perr.Wrapf(err, perr.ErrorCodeIncomplete,
			"star feed failed after %d pages; partial count %d", res.Pages, res.Count)
	case errors.Is(err, context.DeadlineExceeded):
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "count timed out")
	}
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.Wrap(err, perr.ErrorCodeUnknown, "window count failed")
}
