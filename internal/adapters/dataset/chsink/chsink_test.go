package chsink

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"releasepulse/internal/platform/store"
	kit "releasepulse/internal/platform/testkit"
	"releasepulse/internal/services/releases/domain"
)

type fakeCH struct {
	execs  []string
	table  string
	rows   [][]any
	insErr error
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	f.table, f.rows = table, rows
	return f.insErr
}

func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (f *fakeCH) Close() error                                              { return nil }

func TestEnsureTable(t *testing.T) {
	ch := &fakeCH{}
	if err := New(ch, "").EnsureTable(context.Background()); err != nil {
		t.Fatal(err)
	}
	kit.MustContain(t, ch.execs[0], "CREATE TABLE IF NOT EXISTS release_records")
}

func TestWrite_RowShape(t *testing.T) {
	ch := &fakeCH{}
	s := New(ch, "rp")
	pub := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := domain.Record{FullName: "a/b/v1", RepoStars: 5, PublishedAt: pub, FirstWeekStars: 2, StarsComplete: true}
	if err := s.Write(context.Background(), []domain.Record{r}); err != nil {
		t.Fatal(err)
	}
	if ch.table != "rp" || len(ch.rows) != 1 {
		t.Fatalf("table=%q rows=%d", ch.table, len(ch.rows))
	}
	got := ch.rows[0]
	if len(got) != len(domain.Columns)+1 {
		t.Fatalf("row has %d values", len(got))
	}
	if got[1] != "a/b" || got[2] != int64(5) || got[17] != int64(2) || got[18] != true {
		t.Fatalf("row = %v", got)
	}
	if got[6].(*time.Time) != nil {
		t.Fatal("zero created_at should be NULL")
	}
	if ts, ok := got[8].([]string); !ok || ts == nil {
		t.Fatalf("topics = %#v", got[8])
	}
	// every ddl column has a value
	if n := strings.Count(ddl, "\n\t"); n != len(got) {
		t.Fatalf("ddl columns %d != row values %d", n, len(got))
	}
}

func TestWrite_Errors(t *testing.T) {
	ch := &fakeCH{insErr: errors.New("ch down")}
	s := New(ch, "")
	if err := s.Write(context.Background(), nil); err != nil || ch.rows != nil {
		t.Fatal("empty write must skip insert")
	}
	if err := s.Write(context.Background(), []domain.Record{{FullName: "a/b/v1"}}); err == nil {
		t.Fatal("expected error")
	}
	kit.MustPanic(t, func() { New(nil, "") })
	if s.Name() != "clickhouse" {
		t.Fatal(s.Name())
	}
}
