// Package api provides the HTTP API for the application
package api

import (
	"time"

	"releasepulse/internal/core/window"
	"releasepulse/internal/platform/config"
	"releasepulse/internal/platform/metrics"
	phttp "releasepulse/internal/platform/net/http"
	"releasepulse/internal/platform/net/middleware"
	"releasepulse/internal/platform/store"

	"releasepulse/internal/modkit"
	"releasepulse/internal/modkit/httpkit"
	"releasepulse/internal/modkit/module"
	"releasepulse/internal/modkit/swaggerkit"

	metahttp "releasepulse/internal/services/api/meta/http"
	metamod "releasepulse/internal/services/api/meta/module"
	windowsmod "releasepulse/internal/services/api/windows/module"
	releasesmod "releasepulse/internal/services/releases/module"
)

// Options are the API options
type Options struct {
	Config  config.Conf // CORE_API_ view
	Store   *store.Store
	Metrics *metrics.Manager

	// Feed backs the windowed count endpoint, usually a github.StarFeed
	Feed          window.Fetcher
	StarPageDelay time.Duration

	// GitHub is pinged by /meta/ready
	GitHub metahttp.Pinger

	EnableSwagger  bool
	EnableProfiler bool
}

// Modules builds the API modules in mount order
func Modules(opt Options) []module.Module {
	deps := modkit.DepsFromStore(opt.Store, opt.Config, opt.Metrics)
	return []module.Module{
		metamod.New(deps, metamod.Options{GitHub: opt.GitHub}),
		windowsmod.New(deps, windowsmod.Options{Feed: opt.Feed, Pace: opt.StarPageDelay}),
		releasesmod.New(deps),
	}
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	mods := Modules(opt)

	// docs, profiler and metrics live outside the versioned stack
	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	if opt.Metrics != nil {
		phttp.MountMetrics(r, "/metrics", opt.Metrics.Handler())
	}

	stack := middleware.CommonStack(middleware.StackOptions{
		CORS:          middleware.CORSOptions{AllowedOrigins: opt.Config.MayCSV("CORS_ORIGINS", nil)},
		Timeout:       opt.Config.MayDuration("REQUEST_TIMEOUT", 60*time.Second),
		SlowThreshold: opt.Config.MayDuration("SLOW_REQUEST", time.Second),
		Heartbeat:     "/api/v1/ping",
		Metrics:       opt.Metrics,
	})
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
		}
	})
}
