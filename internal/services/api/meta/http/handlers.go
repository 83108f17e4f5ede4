// Package http provides meta endpoints
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"releasepulse/internal/core/version"
	"releasepulse/internal/modkit/httpkit"
	"releasepulse/internal/modkit/swaggerkit"
)

// Pinger is satisfied by adapters that expose Ping
type Pinger interface {
	Ping(stdctx.Context) error
}

// Check is one readiness dependency. A nil Target reports "skipped"
type Check struct {
	Name     string
	Target   any
	Required bool // a required check that is not ok fails readiness
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Checks      []Check

	// Timeout bounds all readiness pings together; <=0 -> 2s
	Timeout time.Duration
}

type handlers struct {
	deps Deps
	now  func() time.Time
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	h := &handlers{deps: d, now: time.Now}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
}

// Docs adds the meta routes to the served OpenAPI document
func Docs(prefix string) swaggerkit.SpecMutator {
	return func(spec map[string]any) {
		for _, p := range []struct{ path, summary string }{
			{"/health", "Liveness"},
			{"/ready", "Readiness of GitHub and the dataset stores"},
			{"/version", "Build info"},
			{"/service", "Service name and uptime"},
		} {
			swaggerkit.AddPath(spec, prefix+p.path, "get", swaggerkit.Op("Meta", p.summary))
		}
	}
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Now     string `json:"now"`
}

// ReadyCheck is the outcome of one dependency ping
type ReadyCheck struct {
	Name     string `json:"name"`
	Status   string `json:"status"` // ok fail skipped unknown
	Required bool   `json:"required"`
	Error    string `json:"error,omitempty"`
	TookMs   int64  `json:"took_ms"`
}

// ReadyResponse summarizes readiness: fail when a required check is not ok,
// degraded when an optional one fails
type ReadyResponse struct {
	Status string       `json:"status"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"`
}

// ServiceResponse describes the running process
type ServiceResponse struct {
	Name    string `json:"name"`
	Started string `json:"started"`
	Uptime  int64  `json:"uptime"`
}

func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Now:     h.now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), h.deps.Timeout)
	defer cancel()

	out := ReadyResponse{Status: "ok", Checks: make([]ReadyCheck, 0, len(h.deps.Checks))}
	for _, c := range h.deps.Checks {
		rc := h.probe(ctx, c)
		switch {
		case c.Required && rc.Status != "ok":
			out.Status = "fail"
		case rc.Status == "fail" && out.Status == "ok":
			out.Status = "degraded"
		}
		out.Checks = append(out.Checks, rc)
	}
	out.Now = h.now().UTC().Format(time.RFC3339)
	return out, nil
}

func (h *handlers) probe(ctx stdctx.Context, c Check) ReadyCheck {
	rc := ReadyCheck{Name: c.Name, Required: c.Required}
	if c.Target == nil {
		rc.Status = "skipped"
		return rc
	}
	p, ok := c.Target.(Pinger)
	if !ok {
		rc.Status = "unknown"
		return rc
	}
	start := h.now()
	err := p.Ping(ctx)
	rc.TookMs = h.now().Sub(start).Milliseconds()
	if err != nil {
		rc.Status, rc.Error = "fail", err.Error()
		return rc
	}
	rc.Status = "ok"
	return rc
}

func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(h.deps.ServiceName), nil
}

func (h *handlers) service(_ *http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(h.now().Sub(h.deps.StartedAt) / time.Second),
	}, nil
}
