// Package module wires the releases listing into the API using modkit
package module

import (
	"time"

	modkit "releasepulse/internal/modkit"
	"releasepulse/internal/modkit/httpkit"
	"releasepulse/internal/modkit/repokit"
	"releasepulse/internal/modkit/swaggerkit"
	str "releasepulse/internal/platform/strings"
	"releasepulse/internal/services/releases/domain"
	relhttp "releasepulse/internal/services/releases/http"
	relrepo "releasepulse/internal/services/releases/repo"
	relsvc "releasepulse/internal/services/releases/service"
)

const defaultListTimeout = 5 * time.Second

// Ports is what other modules may use from releases
type Ports struct {
	Reader domain.ReaderPort
}

// Module implements the releases module
type Module struct {
	b     modkit.Built
	ports Ports
}

// New constructs the releases module. Without postgres the routes are not mounted
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("releases"), modkit.WithPrefix("/releases")}, opts...)...)

	m := &Module{b: b}
	if deps.PG != nil {
		timeout := deps.Cfg.Prefix("RELEASES_").MayDuration("LIST_TIMEOUT", defaultListTimeout)
		db := repokit.WithBeginHooks(deps.PG, repokit.StatementTimeout(timeout))
		m.ports.Reader = relsvc.NewReader(db, relrepo.NewPG())
		swaggerkit.Register(relhttp.Docs(str.MustPrefix(b.Prefix)))
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	if m.ports.Reader == nil {
		return
	}
	m.b.Mount(r, func(rr httpkit.Router) { relhttp.Register(rr, m.ports.Reader) })
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.b.Name, "module name") }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
