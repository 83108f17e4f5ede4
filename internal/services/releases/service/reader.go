package service

import (
	"context"

	"releasepulse/internal/modkit/repokit"
	perr "releasepulse/internal/platform/errors"
	"releasepulse/internal/platform/net/http/bind"
	"releasepulse/internal/services/releases/domain"
	"releasepulse/internal/services/releases/repo"
)

// DefaultListLimit applies when a list query has no limit
const DefaultListLimit = domain.DefaultListLimit

// Reader implements domain.ReaderPort over postgres
type Reader struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
}

// NewReader constructs a Reader
func NewReader(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Reader {
	if db == nil {
		panic("releases.Reader requires a non nil TxRunner")
	}
	if binder == nil {
		panic("releases.Reader requires a non nil Repo binder")
	}
	return &Reader{db: db, binder: binder}
}

// List returns one page of records, newest release first, and the total match count
func (s *Reader) List(ctx context.Context, q domain.ListQuery) ([]domain.Record, int, error) {
	if q.Limit == 0 {
		q.Limit = DefaultListLimit
	}
	if err := bind.Validate(q); err != nil {
		return nil, 0, err
	}

	var (
		out   []domain.Record
		total int
	)
	err := s.db.Tx(ctx, func(tx repokit.Queryer) error {
		r := s.binder.Bind(tx)
		var err error
		if out, err = r.List(ctx, q.Repo, q.Limit, q.Offset); err != nil {
			return err
		}
		total, err = r.Count(ctx, q.Repo)
		return err
	})
	if err != nil {
		return nil, 0, perr.FromPostgres(err, "list releases")
	}
	return out, total, nil
}

var _ domain.ReaderPort = (*Reader)(nil)
