package ch

import (
	"context"
	"testing"

	kit "releasepulse/internal/platform/testkit"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()
	if _, err := Open(context.Background(), Config{URL: "://nope"}); err == nil {
		t.Fatal("expected dsn error")
	}
}

func TestOpen_PassesClientInfo(t *testing.T) {
	kit.Serial(t)

	var got *clickhouse.Options
	kit.Swap(t, &openConn, func(o *clickhouse.Options) (driver.Conn, error) {
		got = o
		return nil, nil
	})

	c, err := Open(context.Background(), Config{URL: "clickhouse://u:p@localhost:9000/pulse", Role: "collect", Tag: "v1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c == nil || got == nil {
		t.Fatal("expected client and captured options")
	}
	if got.Auth.Database != "pulse" || got.Auth.Username != "u" {
		t.Fatalf("auth = %+v", got.Auth)
	}
	if len(got.ClientInfo.Products) == 0 || got.ClientInfo.Products[0].Name != "releasepulse" {
		t.Fatalf("client info = %+v", got.ClientInfo)
	}
	if got.ClientInfo.Products[1].Version != "collect" {
		t.Fatalf("role = %+v", got.ClientInfo.Products[1])
	}
}

func TestInsert_EmptyIsNoop(t *testing.T) {
	t.Parallel()
	c := &CH{}
	if err := c.Insert(context.Background(), "releases", nil); err != nil {
		t.Fatalf("empty insert: %v", err)
	}
}

func TestClose_NilSafe(t *testing.T) {
	t.Parallel()
	var c *CH
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := (&CH{}).Close(); err != nil {
		t.Fatal(err)
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"releases":       "`releases`",
		"pulse.releases": "`pulse`.`releases`",
		"we`ird":         "`we``ird`",
	}
	for in, want := range cases {
		if got := quoteIdent(in); got != want {
			t.Fatalf("quoteIdent(%q) = %s want %s", in, got, want)
		}
	}
}
