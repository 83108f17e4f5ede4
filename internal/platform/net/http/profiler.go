package http

import (
	stdhttp "net/http"

	mw "github.com/go-chi/chi/v5/middleware"
)

// MountProfiler mounts pprof under prefix (e.g. "/debug") when enabled
func MountProfiler(r Router, prefix string, enabled bool) {
	if !enabled {
		return
	}
	h := stdhttp.StripPrefix(prefix, mw.Profiler())
	r.Handle(prefix, h)
	r.Handle(prefix+"/*", h)
}

// MountMetrics exposes a metrics handler (Prometheus text format) at path
func MountMetrics(r Router, path string, h stdhttp.Handler) {
	if h == nil {
		return
	}
	r.Handle(path, h)
}
