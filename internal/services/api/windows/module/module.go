// Package module wires windowed counts into the API using modkit
package module

import (
	"time"

	"releasepulse/internal/core/window"
	modkit "releasepulse/internal/modkit"
	"releasepulse/internal/modkit/httpkit"
	"releasepulse/internal/modkit/swaggerkit"
	str "releasepulse/internal/platform/strings"
	"releasepulse/internal/services/api/windows/domain"
	winhttp "releasepulse/internal/services/api/windows/http"
	winsvc "releasepulse/internal/services/api/windows/service"
)

// Ports is the ports bundle exported by the windows module
type Ports struct {
	Counter domain.ServicePort
}

// Options are required by the windows module
type Options struct {
	Feed window.Fetcher
	Pace time.Duration
}

// Module implements the windows module
type Module struct {
	b     modkit.Built
	ports Ports
}

// New constructs the windows module
func New(deps modkit.Deps, o Options, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("windows"), modkit.WithPrefix("/windows")}, opts...)...)
	swaggerkit.Register(winhttp.Docs(str.MustPrefix(b.Prefix)))
	return &Module{b: b, ports: Ports{Counter: winsvc.New(o.Feed, o.Pace, deps.Metrics)}}
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { winhttp.Register(rr, m.ports.Counter) })
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.b.Name, "module name") }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
