// Command releasepulse-topics adds a topics column to a repository CSV
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"releasepulse/internal/adapters/ingest/github"
	"releasepulse/internal/platform/config"
	"releasepulse/internal/platform/logger"

	topicsvc "releasepulse/internal/services/topics/service"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		logger.Get().Panic().Err(err).Msg("load .env failed")
	}
	root := config.New()
	cfg := topicsvc.ConfigFromEnv(root.Prefix("TOPICS_"))

	var (
		fIn   = flag.String("in", cfg.Input, "input CSV with a repo_name column")
		fOut  = flag.String("out", cfg.Output, "output CSV (default: rewrite input)")
		fSkip = flag.Int("skip", cfg.Skip, "rows to leave untouched, for resuming")
	)
	flag.Parse()
	cfg.Input, cfg.Output, cfg.Skip = *fIn, *fOut, *fSkip

	l := logger.Get()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gh := github.NewClient(github.OptionsFromEnv(root.Prefix("GITHUB_"), nil))
	if !gh.HasToken() {
		l.Warn().Msg("no GitHub token configured, anonymous rate limits apply")
	}

	sum, err := topicsvc.New(gh, cfg, nil).Run(ctx)
	if err != nil {
		l.Error().Err(err).Int("rows", sum.Rows).Str("checkpoint", topicsvc.CheckpointPath(cfg.Input)).Msg("enrichment stopped")
		os.Exit(1)
	}
}
