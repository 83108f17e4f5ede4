package service

import (
	"context"
	"errors"
	"testing"

	"releasepulse/internal/modkit/repokit"
	perr "releasepulse/internal/platform/errors"
	"releasepulse/internal/services/releases/domain"
	"releasepulse/internal/services/releases/repo"
)

type txOnly struct {
	repokit.Queryer
	txs int
}

func (t *txOnly) Tx(_ context.Context, fn func(q repokit.Queryer) error) error {
	t.txs++
	return fn(t)
}

type fakeRepo struct {
	repo.Repo
	gotRepo       string
	gotLim, gotOf int
	err           error
}

func (f *fakeRepo) List(_ context.Context, r string, limit, offset int) ([]domain.Record, error) {
	f.gotRepo, f.gotLim, f.gotOf = r, limit, offset
	return []domain.Record{{FullName: "a/b/v1"}}, f.err
}

func (f *fakeRepo) Count(context.Context, string) (int, error) { return 11, nil }

func newReader(fr *fakeRepo) (*Reader, *txOnly) {
	tx := &txOnly{}
	return NewReader(tx, repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return fr })), tx
}

func TestReader_ListDefaultsAndTotals(t *testing.T) {
	fr := &fakeRepo{}
	r, tx := newReader(fr)
	out, total, err := r.List(context.Background(), domain.ListQuery{Repo: "a/b", Offset: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || total != 11 || tx.txs != 1 {
		t.Fatalf("out=%v total=%d txs=%d", out, total, tx.txs)
	}
	if fr.gotRepo != "a/b" || fr.gotLim != DefaultListLimit || fr.gotOf != 5 {
		t.Fatalf("repo got %q %d %d", fr.gotRepo, fr.gotLim, fr.gotOf)
	}
}

func TestReader_ListValidation(t *testing.T) {
	r, tx := newReader(&fakeRepo{})
	cases := []domain.ListQuery{
		{Limit: 501},
		{Limit: 10, Offset: -1},
		{Limit: 10, Repo: "not-a-slug"},
	}
	for _, q := range cases {
		if _, _, err := r.List(context.Background(), q); perr.CodeOf(err) != perr.ErrorCodeValidation {
			t.Fatalf("%+v: err = %v", q, err)
		}
	}
	if tx.txs != 0 {
		t.Fatal("invalid queries must not reach the db")
	}
}

func TestReader_ListMapsDBErrors(t *testing.T) {
	r, _ := newReader(&fakeRepo{err: errors.New("conn reset")})
	_, _, err := r.List(context.Background(), domain.ListQuery{})
	if perr.CodeOf(err) != perr.ErrorCodeDB {
		t.Fatalf("err = %v", err)
	}
}
