package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/pkg/logger"
)

// Snapshot persists every player's planet, resources, buildings, fleet
// and research onto the `users`/`planets`/`buildings`/`fleets`/`research`
// tables of spec §6.3, honoring the per-planet write throttle and the
// single global save trylock. It is called from the scheduler's
// MaybeSnapshot hook, which cmd/coreserver gates on cfg.SaveInterval,
// and once more at shutdown; a save already in flight makes a second
// call a no-op rather than queuing behind it, per §4.12.
func (b *Bridge) Snapshot(ctx context.Context, store *ecs.Store) {
	if b.pool == nil {
		return
	}

	lock := b.saveLock.Acquire("snapshot")
	if !lock.TryLock() {
		b.log.Trace(logger.Debug, "persistence", "snapshot already in flight, skipping")
		b.saveLock.Release(lock)
		return
	}
	defer func() {
		lock.Release()
		b.saveLock.Release(lock)
	}()

	start := time.Now()
	written := 0
	skipped := 0

	for id, player := range store.AllPlayers() {
		if !b.allow(id) {
			skipped++
			continue
		}

		if err := b.savePlanet(ctx, store, id, player); err != nil {
			b.log.Trace(logger.Error, "persistence", fmt.Sprintf("saving planet for %q: %v", player.UserID, err))
			continue
		}
		written++
	}

	b.log.Trace(logger.Info, "persistence", fmt.Sprintf("snapshot wrote %d planet(s), skipped %d (throttled) in %s", written, skipped, time.Since(start)))
}

// savePlanet upserts every component attached to a single player entity.
// Each statement is independent (rather than one giant transaction)
// since spec §4.12 only requires atomicity within a single logical
// operation (e.g. "atomic resource spend"), not across the whole
// snapshot: a partial snapshot is recoverable on the next save, whereas
// holding one transaction open across every player for the whole sweep
// would serialize unrelated players' writes against each other.
func (b *Bridge) savePlanet(ctx context.Context, store *ecs.Store, id ecs.EntityID, player components.Player) error {
	pos, _ := store.Position(id)
	planet, _ := store.Planet(id)
	res, _ := store.Resources(id)
	prod, _ := store.ResourceProduction(id)

	_, err := b.pool.Exec(ctx, `
		insert into users (user_id, name, last_active)
		values ($1, $2, $3)
		on conflict (user_id) do update set name = excluded.name, last_active = excluded.last_active
	`, player.UserID, player.Name, player.LastActive)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}

	_, err = b.pool.Exec(ctx, `
		insert into planets (planet_id, user_id, name, galaxy, system, position, temperature, size)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		on conflict (planet_id) do update set
			name = excluded.name, galaxy = excluded.galaxy, system = excluded.system,
			position = excluded.position, temperature = excluded.temperature, size = excluded.size
	`, id, player.UserID, planet.Name, pos.Galaxy, pos.System, pos.Position, planet.Temperature, planet.Size)
	if err != nil {
		return fmt.Errorf("upserting planet: %w", err)
	}

	_, err = b.pool.Exec(ctx, `
		insert into planet_resources (planet_id, metal, crystal, deuterium, metal_rate, crystal_rate, deuterium_rate, last_update)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		on conflict (planet_id) do update set
			metal = excluded.metal, crystal = excluded.crystal, deuterium = excluded.deuterium,
			metal_rate = excluded.metal_rate, crystal_rate = excluded.crystal_rate,
			deuterium_rate = excluded.deuterium_rate, last_update = excluded.last_update
	`, id, res.Metal, res.Crystal, res.Deuterium, prod.MetalRate, prod.CrystalRate, prod.DeuteriumRate, prod.LastUpdate)
	if err != nil {
		return fmt.Errorf("upserting resources: %w", err)
	}

	if err := b.saveBuildings(ctx, store, id); err != nil {
		return err
	}
	if err := b.saveResearch(ctx, store, id); err != nil {
		return err
	}
	if err := b.saveFleet(ctx, store, id); err != nil {
		return err
	}
	if err := b.saveQueues(ctx, store, id); err != nil {
		return err
	}

	return nil
}

func (b *Bridge) saveBuildings(ctx context.Context, store *ecs.Store, id ecs.EntityID) error {
	bld, ok := store.Buildings(id)
	if !ok {
		return nil
	}
	batch := &pgx.Batch{}
	for kind, level := range bld.Levels {
		batch.Queue(`
			insert into buildings (planet_id, building_type, level)
			values ($1, $2, $3)
			on conflict (planet_id, building_type) do update set level = excluded.level
		`, id, string(kind), level)
	}
	return b.sendBatch(ctx, batch)
}

func (b *Bridge) saveResearch(ctx context.Context, store *ecs.Store, id ecs.EntityID) error {
	res, ok := store.Research(id)
	if !ok {
		return nil
	}
	batch := &pgx.Batch{}
	for kind, level := range res.Levels {
		batch.Queue(`
			insert into research (user_id, research_type, level)
			select user_id, $2, $3 from users where user_id = (select user_id from planets where planet_id = $1)
			on conflict (user_id, research_type) do update set level = excluded.level
		`, id, string(kind), level)
	}
	return b.sendBatch(ctx, batch)
}

func (b *Bridge) saveFleet(ctx context.Context, store *ecs.Store, id ecs.EntityID) error {
	fl, ok := store.Fleet(id)
	if !ok {
		return nil
	}
	batch := &pgx.Batch{}
	for kind, count := range fl.Counts {
		batch.Queue(`
			insert into fleets (planet_id, ship_type, count)
			values ($1, $2, $3)
			on conflict (planet_id, ship_type) do update set count = excluded.count
		`, id, string(kind), count)
	}
	return b.sendBatch(ctx, batch)
}

// saveQueues replaces the pending building/ship/research queue rows for
// a planet wholesale: queues are short (bounded by ShipyardQueueBase/
// PerLevel) so a delete-then-reinsert is simpler than diffing, and it's
// what the teacher's own queue-backed action tables do on every action
// commit.
func (b *Bridge) saveQueues(ctx context.Context, store *ecs.Store, id ecs.EntityID) error {
	if _, err := b.pool.Exec(ctx, `delete from building_queue where planet_id = $1`, id); err != nil {
		return fmt.Errorf("clearing building queue: %w", err)
	}
	if bq, ok := store.BuildQueue(id); ok {
		batch := &pgx.Batch{}
		for i, item := range bq.Items {
			batch.Queue(`
				insert into building_queue (planet_id, position, building_type, completion_time, queued_at)
				values ($1, $2, $3, $4, $5)
			`, id, i, string(item.Type), item.CompletionTime, item.QueuedAt)
		}
		if err := b.sendBatch(ctx, batch); err != nil {
			return fmt.Errorf("inserting building queue: %w", err)
		}
	}

	if _, err := b.pool.Exec(ctx, `delete from ship_build_queue where planet_id = $1`, id); err != nil {
		return fmt.Errorf("clearing ship queue: %w", err)
	}
	if sq, ok := store.ShipBuildQueue(id); ok {
		batch := &pgx.Batch{}
		for i, item := range sq.Items {
			batch.Queue(`
				insert into ship_build_queue (planet_id, position, ship_type, count, completion_time, queued_at)
				values ($1, $2, $3, $4, $5, $6)
			`, id, i, string(item.Type), item.Count, item.CompletionTime, item.QueuedAt)
		}
		if err := b.sendBatch(ctx, batch); err != nil {
			return fmt.Errorf("inserting ship queue: %w", err)
		}
	}

	if _, err := b.pool.Exec(ctx, `delete from research_queue where planet_id = $1`, id); err != nil {
		return fmt.Errorf("clearing research queue: %w", err)
	}
	if rq, ok := store.ResearchQueue(id); ok {
		batch := &pgx.Batch{}
		for i, item := range rq.Items {
			batch.Queue(`
				insert into research_queue (planet_id, position, research_type, completion_time, queued_at)
				values ($1, $2, $3, $4, $5)
			`, id, i, string(item.Type), item.CompletionTime, item.QueuedAt)
		}
		if err := b.sendBatch(ctx, batch); err != nil {
			return fmt.Errorf("inserting research queue: %w", err)
		}
	}

	if mv, ok := store.FleetMovement(id); ok {
		if err := b.upsertFleetMission(ctx, id, mv); err != nil {
			return err
		}
	} else if _, err := b.pool.Exec(ctx, `delete from fleet_missions where planet_id = $1`, id); err != nil {
		return fmt.Errorf("clearing fleet mission: %w", err)
	}

	return nil
}

// upsertFleetMission persists the single in-flight FleetMovement a
// planet may carry (invariant 4: at most one per entity).
func (b *Bridge) upsertFleetMission(ctx context.Context, id ecs.EntityID, mv components.FleetMovement) error {
	_, err := b.pool.Exec(ctx, `
		insert into fleet_missions (
			planet_id, owner_id, mission, origin_galaxy, origin_system, origin_position,
			target_galaxy, target_system, target_position, departure_time, arrival_time,
			speed, recalled, colonizing_until
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		on conflict (planet_id) do update set
			owner_id = excluded.owner_id, mission = excluded.mission,
			origin_galaxy = excluded.origin_galaxy, origin_system = excluded.origin_system,
			origin_position = excluded.origin_position, target_galaxy = excluded.target_galaxy,
			target_system = excluded.target_system, target_position = excluded.target_position,
			departure_time = excluded.departure_time, arrival_time = excluded.arrival_time,
			speed = excluded.speed, recalled = excluded.recalled,
			colonizing_until = excluded.colonizing_until
	`, id, mv.OwnerID, string(mv.Mission), mv.Origin.Galaxy, mv.Origin.System, mv.Origin.Position,
		mv.Target.Galaxy, mv.Target.System, mv.Target.Position, mv.DepartureTime, mv.ArrivalTime,
		mv.Speed, mv.Recalled, mv.ColonizingUntil)
	if err != nil {
		return fmt.Errorf("upserting fleet mission: %w", err)
	}
	return nil
}

// sendBatch executes a pgx.Batch and checks every queued statement's
// result, since pgx only surfaces a per-statement error when its result
// is actually read off the BatchResults.
func (b *Bridge) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := b.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
