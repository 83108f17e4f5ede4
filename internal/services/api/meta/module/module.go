// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"time"

	modkit "releasepulse/internal/modkit"
	"releasepulse/internal/modkit/httpkit"
	"releasepulse/internal/modkit/swaggerkit"
	str "releasepulse/internal/platform/strings"

	metahttp "releasepulse/internal/services/api/meta/http"
)

// ServiceName is reported by the meta endpoints
const ServiceName = "releasepulse-api"

// Options adds the upstream readiness check
type Options struct {
	// GitHub is pinged by /ready and must answer; usually *github.Client
	GitHub metahttp.Pinger
}

// Module implements the modkit.Module interface
type Module struct {
	b         modkit.Built
	deps      metahttp.Deps
	startedAt time.Time
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, o Options, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	m := &Module{b: b, startedAt: time.Now()}
	m.deps = metahttp.Deps{
		ServiceName: ServiceName,
		StartedAt:   m.startedAt,
		Timeout:     deps.Cfg.MayDuration("READY_TIMEOUT", 2*time.Second),
		Checks: []metahttp.Check{
			{Name: "github", Target: o.GitHub, Required: true},
			{Name: "pg", Target: deps.PG},
			{Name: "ch", Target: deps.CH},
		},
	}
	swaggerkit.Register(metahttp.Docs(str.MustPrefix(b.Prefix)))
	return m
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.deps) })
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return str.MustString(m.b.Name, "meta") }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
