package persistence

import (
	"context"
	"fmt"
	"time"
)

// CleanupInactive deletes every user (and, via cascade, their planets
// and everything keyed off them) whose last_active is older than
// cfg.CleanupDays, per §4.12's periodic inactivity sweep. Returns the
// number of rows removed so the caller can log/metric it.
func (b *Bridge) CleanupInactive(ctx context.Context, now time.Time) (int64, error) {
	if b.pool == nil {
		return 0, nil
	}

	cutoff := now.AddDate(0, 0, -b.cfg.CleanupDays)

	tag, err := b.pool.Exec(ctx, `delete from users where last_active < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting inactive users: %w", err)
	}
	return tag.RowsAffected(), nil
}
