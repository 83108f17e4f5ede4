// Command releasepulse-api serves window counts and collected release records
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"releasepulse/internal/adapters/ingest/github"
	"releasepulse/internal/modkit/repokit"
	"releasepulse/internal/platform/config"
	"releasepulse/internal/platform/logger"
	"releasepulse/internal/platform/metrics"
	phttp "releasepulse/internal/platform/net/http"
	"releasepulse/internal/platform/store"

	"releasepulse/internal/services/api"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		logger.Get().Panic().Err(err).Msg("load .env failed")
	}
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	relCfg := root.Prefix("RELEASES_")

	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// backends are optional here; without postgres the releases listing is not mounted
	st, err := store.Open(ctx, store.ConfigFromEnv("api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st)

	m := metrics.New(metrics.WithProcessCollectors())
	gh := github.NewClient(github.OptionsFromEnv(root.Prefix("GITHUB_"), m))
	if !gh.HasToken() {
		l.Warn().Msg("no GitHub token configured, anonymous rate limits apply")
	}

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(apiCfg)

	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Metrics:        m,
			Feed:           github.NewStarFeed(gh, 0),
			StarPageDelay:  relCfg.MayDuration("STAR_PAGE_DELAY", 0),
			GitHub:         gh,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
