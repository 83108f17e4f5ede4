package repo

import (
	"context"

	"releasepulse/internal/modkit/repokit"
	"releasepulse/internal/services/releases/domain"
)

// Sink writes records to postgres, one transaction per batch
type Sink struct {
	db     repokit.TxRunner
	binder repokit.Binder[Repo]
}

// NewSink constructs a postgres sink
func NewSink(db repokit.TxRunner, binder repokit.Binder[Repo]) *Sink {
	if db == nil {
		panic("releases.Sink requires a non nil TxRunner")
	}
	if binder == nil {
		binder = NewPG()
	}
	return &Sink{db: db, binder: binder}
}

// Name implements domain.Sink
func (s *Sink) Name() string { return "pg" }

// EnsureSchema creates the releases table if missing
func (s *Sink) EnsureSchema(ctx context.Context) error {
	return s.binder.Bind(s.db).EnsureSchema(ctx)
}

// Write implements domain.Sink
func (s *Sink) Write(ctx context.Context, recs []domain.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).Upsert(ctx, recs)
	})
}

var _ domain.Sink = (*Sink)(nil)
