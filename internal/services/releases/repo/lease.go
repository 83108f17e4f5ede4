package repo

import (
	"context"
	"time"

	"releasepulse/internal/modkit/repokit"
	"releasepulse/internal/platform/logger"
	"releasepulse/internal/services/releases/domain"
)

// NewPageLease claims search pages in release_page_leases so collectors
// sharing a database split the pages of a day between them.
// Claims are never released; a failed page stays claimed until the next day
func NewPageLease(db repokit.TxRunner) domain.PageLease {
	if db == nil {
		panic("releases.PageLease requires a non nil TxRunner")
	}
	return func(ctx context.Context, day time.Time, query string, page int, do func(context.Context) error) error {
		var claimed bool
		err := db.Tx(ctx, func(q repokit.Queryer) error {
			rows, err := q.Query(ctx, `
				insert into release_page_leases (day, query, page, run_id)
				values ($1, $2, $3, $4)
				on conflict (day, query, page) do nothing
				returning true
			`, day.UTC().Truncate(24*time.Hour), query, page, logger.RunID(ctx))
			if err != nil {
				return err
			}
			defer rows.Close()
			claimed = rows.Next()
			return rows.Err()
		})
		if err != nil {
			return err
		}
		if !claimed {
			return domain.ErrLeaseHeld
		}
		return do(ctx)
	}
}
