// Package modkit provides module wiring and core deps
package modkit

import (
	"releasepulse/internal/modkit/repokit"
	"releasepulse/internal/platform/config"
	"releasepulse/internal/platform/logger"
	"releasepulse/internal/platform/metrics"
	"releasepulse/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	CH      store.Clickhouse
	Metrics *metrics.Manager
}

// DepsFromStore fills the storage seams from an opened Store; s may be nil
func DepsFromStore(s *store.Store, cfg config.Conf, m *metrics.Manager) Deps {
	d := Deps{Cfg: cfg, Metrics: m}
	if s != nil {
		d.Log = s.Log
		d.PG = s.PG
		d.CH = s.CH
	}
	return d
}
