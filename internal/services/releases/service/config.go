package service

import (
	"time"

	"releasepulse/internal/platform/config"
)

// Config controls search, selection and pacing of a collection run
type Config struct {
	// Repository search
	DaysBack  int `validate:"min=1,max=3650"` // created within the last N days
	MinStars  int `validate:"min=0"`
	MaxStars  int `validate:"gtefield=MinStars"`
	StartPage int `validate:"min=1"`
	EndPage   int `validate:"gtefield=StartPage"`
	PerPage   int `validate:"min=1,max=100"`
	MinSize   int `validate:"min=0"` // repos must be strictly larger (KB)

	// Per repo
	MaxReleases int `validate:"min=1,max=100"`
	WindowDays  int `validate:"min=1,max=90"`

	// Pacing
	ReleaseDelay  time.Duration // between release starts
	PageDelay     time.Duration // after each search page
	StarPageDelay time.Duration // between stargazer pages of one count

	// Concurrency bounds in-flight releases of one repo; <=0 -> 1
	Concurrency int
}

// DefaultConfig mirrors the reference collection run
func DefaultConfig() Config {
	return Config{
		DaysBack:      366,
		MinStars:      100,
		MaxStars:      5000,
		StartPage:     1,
		EndPage:       30,
		PerPage:       50,
		MinSize:       100,
		MaxReleases:   10,
		WindowDays:    7,
		ReleaseDelay:  500 * time.Millisecond,
		PageDelay:     time.Second,
		StarPageDelay: 500 * time.Millisecond,
		Concurrency:   1,
	}
}

// ConfigFromEnv overlays RELEASES_* env vars on DefaultConfig
func ConfigFromEnv(c config.Conf) Config {
	d := DefaultConfig()
	return Config{
		DaysBack:      c.MayInt("DAYS_BACK", d.DaysBack),
		MinStars:      c.MayInt("MIN_STARS", d.MinStars),
		MaxStars:      c.MayInt("MAX_STARS", d.MaxStars),
		StartPage:     c.MayInt("START_PAGE", d.StartPage),
		EndPage:       c.MayInt("END_PAGE", d.EndPage),
		PerPage:       c.MayInt("PER_PAGE", d.PerPage),
		MinSize:       c.MayInt("MIN_SIZE", d.MinSize),
		MaxReleases:   c.MayInt("MAX_RELEASES", d.MaxReleases),
		WindowDays:    c.MayInt("WINDOW_DAYS", d.WindowDays),
		ReleaseDelay:  c.MayDuration("RELEASE_DELAY", d.ReleaseDelay),
		PageDelay:     c.MayDuration("PAGE_DELAY", d.PageDelay),
		StarPageDelay: c.MayDuration("STAR_PAGE_DELAY", d.StarPageDelay),
		Concurrency:   c.MayInt("CONCURRENCY", d.Concurrency),
	}
}
