// Command releasepulse-collect searches recent repositories, counts the stars
// each release gained in its first week and writes one record per release
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"releasepulse/internal/adapters/dataset/chsink"
	"releasepulse/internal/adapters/dataset/csvsink"
	"releasepulse/internal/adapters/ingest/github"
	"releasepulse/internal/platform/config"
	"releasepulse/internal/platform/logger"
	"releasepulse/internal/platform/metrics"
	"releasepulse/internal/platform/store"

	reldom "releasepulse/internal/services/releases/domain"
	relrepo "releasepulse/internal/services/releases/repo"
	relsvc "releasepulse/internal/services/releases/service"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		logger.Get().Panic().Err(err).Msg("load .env failed")
	}
	root := config.New()
	relCfg := root.Prefix("RELEASES_")
	cfg := relsvc.ConfigFromEnv(relCfg)

	var (
		fSinks    = flag.String("sinks", "", "comma separated sinks: csv,pg,ch (default RELEASES_SINKS or csv)")
		fCSV      = flag.String("csv", relCfg.MayString("CSV_PATH", "data/github_releases.csv"), "csv sink path")
		fTable    = flag.String("ch-table", relCfg.MayString("CH_TABLE", chsink.DefaultTable), "clickhouse table")
		fStart    = flag.Int("start-page", cfg.StartPage, "first search page")
		fEnd      = flag.Int("end-page", cfg.EndPage, "last search page (inclusive)")
		fDaysBack = flag.Int("days-back", cfg.DaysBack, "search repos created within the last N days")
		fConc     = flag.Int("concurrency", cfg.Concurrency, "releases counted in parallel per repo")
		fLease    = flag.Bool("lease", relCfg.MayBool("LEASE", false), "claim search pages in postgres (pg sink only)")
	)
	flag.Parse()
	cfg.StartPage, cfg.EndPage, cfg.DaysBack, cfg.Concurrency = *fStart, *fEnd, *fDaysBack, *fConc

	sinkNames := relCfg.MayCSV("SINKS", []string{"csv"})
	if *fSinks != "" {
		sinkNames = config.SplitCSV(*fSinks)
	}

	l := logger.Get()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stCfg := store.ConfigFromEnv("collect")
	stCfg.PG.Enabled = stCfg.PG.Enabled && slices.Contains(sinkNames, "pg")
	stCfg.CH.Enabled = stCfg.CH.Enabled && slices.Contains(sinkNames, "ch")
	st, err := store.Open(ctx, stCfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var sinks []reldom.Sink
	for _, name := range sinkNames {
		switch name {
		case "csv":
			sinks = append(sinks, csvsink.New(*fCSV))
		case "pg":
			if st.PG == nil {
				l.Panic().Msg("pg sink requested but SERVICE_PGSQL_URL is not set")
			}
			s := relrepo.NewSink(st.PG, nil)
			if err := s.EnsureSchema(ctx); err != nil {
				l.Panic().Err(err).Msg("releases schema")
			}
			sinks = append(sinks, s)
		case "ch":
			if st.CH == nil {
				l.Panic().Msg("ch sink requested but SERVICE_CLICKHOUSE_URL is not set")
			}
			s := chsink.New(st.CH, *fTable)
			if err := s.EnsureTable(ctx); err != nil {
				l.Panic().Err(err).Msg("clickhouse table")
			}
			sinks = append(sinks, s)
		default:
			l.Panic().Str("sink", name).Msg("unknown sink")
		}
	}

	m := metrics.New()
	gh := github.NewClient(github.OptionsFromEnv(root.Prefix("GITHUB_"), m))
	if !gh.HasToken() {
		l.Warn().Msg("no GitHub token configured, anonymous rate limits apply")
	}

	col, err := relsvc.NewCollector(gh, github.NewStarFeed(gh, 0), sinks, cfg, m)
	if err != nil {
		l.Panic().Err(err).Msg("collector config")
	}
	if *fLease {
		if st.PG == nil {
			l.Panic().Msg("-lease needs the pg sink")
		}
		col.WithLease(relrepo.NewPageLease(st.PG))
	}
	sum, err := col.Run(ctx)
	if err != nil {
		l.Error().Err(err).Str("run_id", sum.RunID).Msg("collection stopped early")
		os.Exit(1)
	}
}
