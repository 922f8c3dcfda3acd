package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stellarforge/coreserver/internal/components"
)

// ErrCoordinateTaken is returned by CreateColony when another planet
// already occupies the requested slot by the time the insert runs.
var ErrCoordinateTaken = errors.New("persistence: coordinate already occupied")

// uniqueViolation is Postgres's SQLSTATE for a unique-constraint
// conflict.
const uniqueViolation = "23505"

// CreateColony persists a brand-new planet row, relying on a unique
// constraint over (galaxy, system, position) to make the occupancy
// check atomic: two concurrent colonization arrivals targeting the same
// slot race at the database rather than needing an explicit
// SELECT ... FOR UPDATE, since Postgres already serializes the unique
// index insert.
func (b *Bridge) CreateColony(ctx context.Context, planetID int64, ownerID string, planet components.Planet, at components.Coordinate) error {
	if b.pool == nil {
		return nil
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning colony transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		insert into planets (planet_id, user_id, name, galaxy, system, position, temperature, size)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, planetID, ownerID, planet.Name, at.Galaxy, at.System, at.Position, planet.Temperature, planet.Size)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrCoordinateTaken
		}
		return fmt.Errorf("inserting colony planet: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing colony transaction: %w", err)
	}
	return nil
}
