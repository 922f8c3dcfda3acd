package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/internal/events"
	"github.com/stellarforge/coreserver/internal/market"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/internal/systems"
	"github.com/stellarforge/coreserver/pkg/config"
	"github.com/stellarforge/coreserver/pkg/logger"
)

// Hydrate implements spec §4.13's nine-step startup sequence: load every
// persisted component back onto a fresh store, reconcile the id
// counters, apply anything that fell due while the process was down,
// and only then is the caller meant to start the scheduler. It is a
// no-op (returns an empty, ready-to-use store) when the bridge has no
// live pool, so a from-scratch universe is just "run with EnableDB
// unset". ids and trades are the same allocator/event log the command
// handler issues fresh trade offer and trade event ids from, so a
// restart never reissues one a surviving row already holds.
func (b *Bridge) Hydrate(ctx context.Context, store *ecs.Store, sink *events.Sink, now time.Time, ids *sim.IDAllocator, trades *market.Log) error {
	if b.pool == nil {
		b.log.Trace(logger.Notice, "persistence", "database disabled, starting from an empty store")
		return nil
	}

	// Step 1: one planet id per row, indexed by the bigint primary key
	// assigned when it was first saved, so every table below can be
	// rehydrated onto the same entity id it left with.
	planetEntities, maxPlanetID, err := b.loadPlanets(ctx, store)
	if err != nil {
		return fmt.Errorf("loading planets: %w", err)
	}

	// Step 2: autoload every user's components onto the entity the
	// planet row resolved to above.
	if err := b.loadUsers(ctx, store, planetEntities); err != nil {
		return fmt.Errorf("loading users: %w", err)
	}
	if err := b.loadResources(ctx, store, planetEntities); err != nil {
		return fmt.Errorf("loading resources: %w", err)
	}
	if err := b.loadBuildings(ctx, store, planetEntities); err != nil {
		return fmt.Errorf("loading buildings: %w", err)
	}
	if err := b.loadResearch(ctx, store, planetEntities); err != nil {
		return fmt.Errorf("loading research: %w", err)
	}
	if err := b.loadFleets(ctx, store, planetEntities); err != nil {
		return fmt.Errorf("loading fleets: %w", err)
	}

	// Step 5-6: rehydrate the building/ship/research queues, applying
	// any ship batch whose completion_time already elapsed immediately
	// rather than waiting for the first tick to notice.
	if err := b.loadBuildQueues(ctx, store, planetEntities); err != nil {
		return fmt.Errorf("loading building queues: %w", err)
	}
	if err := b.loadShipQueues(ctx, store, planetEntities, now); err != nil {
		return fmt.Errorf("loading ship queues: %w", err)
	}
	if err := b.loadResearchQueues(ctx, store, planetEntities); err != nil {
		return fmt.Errorf("loading research queues: %w", err)
	}

	// Step 7: rehydrate in-flight fleet missions; a movement whose
	// arrival_time already elapsed is left in place rather than resolved
	// here; the fleet movement system picks it up on its very first run
	// since it only ever checks ArrivalTime against "now", overdue or not.
	if err := b.loadFleetMissions(ctx, store, planetEntities); err != nil {
		return fmt.Errorf("loading fleet missions: %w", err)
	}

	// Step 4: reconcile the monotonic entity id counter against the
	// highest planet id on record, plus the trade offer and trade event
	// id counters against the highest ids in trade_offers and trade_events.
	store.ReconcileNextID(maxPlanetID)
	if err := b.reconcileTradeCounters(ctx, ids, trades); err != nil {
		return fmt.Errorf("reconciling trade counters: %w", err)
	}

	// Step 4b: open trade offers, deduplicated by id (a crash between
	// insert and the row becoming visible elsewhere is the only way a
	// duplicate could appear, and on conflict the later row wins).
	if err := b.loadOpenTradeOffers(ctx, store); err != nil {
		return fmt.Errorf("loading trade offers: %w", err)
	}

	// Step 8: offline resource accrual. Production.Run computes accrual
	// from the wall-clock gap against ResourceProduction.LastUpdate, so
	// replaying it once against "now" after every LastUpdate timestamp
	// has been loaded from disk mirrors exactly the online per-tick
	// formula over however long the process was down, with no separate
	// "catch up" formula to keep in sync with §4.4.
	systems.NewProduction(store, b.cfg, sink, b.log).Run(now)

	b.log.Trace(logger.Info, "persistence", fmt.Sprintf("hydrated %d planet(s)", len(planetEntities)))
	return nil
}

func (b *Bridge) loadPlanets(ctx context.Context, store *ecs.Store) (map[int64]ecs.EntityID, ecs.EntityID, error) {
	rows, err := b.pool.Query(ctx, `select planet_id, user_id, name, galaxy, system, position, temperature, size from planets`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entities := make(map[int64]ecs.EntityID)
	var maxID ecs.EntityID

	for rows.Next() {
		var planetID int64
		var userID, name string
		var galaxy, system, position, temperature, size int
		if err := rows.Scan(&planetID, &userID, &name, &galaxy, &system, &position, &temperature, &size); err != nil {
			return nil, 0, err
		}

		id := store.CreateEntity()
		store.SetPlanet(id, components.Planet{Name: name, OwnerID: userID, Temperature: temperature, Size: size})
		store.SetPosition(id, components.Position{Galaxy: galaxy, System: system, Position: position})

		entities[planetID] = id
		if id > maxID {
			maxID = id
		}
	}

	return entities, maxID, rows.Err()
}

func (b *Bridge) loadUsers(ctx context.Context, store *ecs.Store, planets map[int64]ecs.EntityID) error {
	rows, err := b.pool.Query(ctx, `select p.planet_id, u.user_id, u.name, u.last_active from planets p join users u on u.user_id = p.user_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var planetID int64
		var userID, name string
		var lastActive time.Time
		if err := rows.Scan(&planetID, &userID, &name, &lastActive); err != nil {
			return err
		}
		id, ok := planets[planetID]
		if !ok {
			continue
		}
		store.SetPlayer(id, components.Player{Name: name, UserID: userID, LastActive: lastActive})
	}

	return rows.Err()
}

func (b *Bridge) loadResources(ctx context.Context, store *ecs.Store, planets map[int64]ecs.EntityID) error {
	rows, err := b.pool.Query(ctx, `select planet_id, metal, crystal, deuterium, metal_rate, crystal_rate, deuterium_rate, last_update from planet_resources`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var planetID int64
		var res components.Resources
		var prod components.ResourceProduction
		if err := rows.Scan(&planetID, &res.Metal, &res.Crystal, &res.Deuterium, &prod.MetalRate, &prod.CrystalRate, &prod.DeuteriumRate, &prod.LastUpdate); err != nil {
			return err
		}
		id, ok := planets[planetID]
		if !ok {
			continue
		}
		store.SetResources(id, res)
		store.SetResourceProduction(id, prod)
	}

	return rows.Err()
}

func (b *Bridge) loadBuildings(ctx context.Context, store *ecs.Store, planets map[int64]ecs.EntityID) error {
	rows, err := b.pool.Query(ctx, `select planet_id, building_type, level from buildings`)
	if err != nil {
		return err
	}
	defer rows.Close()

	levels := make(map[ecs.EntityID]map[config.BuildingType]int)
	for rows.Next() {
		var planetID int64
		var buildingType string
		var level int
		if err := rows.Scan(&planetID, &buildingType, &level); err != nil {
			return err
		}
		id, ok := planets[planetID]
		if !ok {
			continue
		}
		if levels[id] == nil {
			levels[id] = make(map[config.BuildingType]int)
		}
		levels[id][config.BuildingType(buildingType)] = level
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, lvl := range levels {
		store.SetBuildings(id, components.Buildings{Levels: lvl})
	}
	return nil
}

func (b *Bridge) loadResearch(ctx context.Context, store *ecs.Store, planets map[int64]ecs.EntityID) error {
	rows, err := b.pool.Query(ctx, `
		select p.planet_id, r.research_type, r.level
		from research r join planets p on p.user_id = r.user_id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	levels := make(map[ecs.EntityID]map[config.ResearchType]int)
	for rows.Next() {
		var planetID int64
		var researchType string
		var level int
		if err := rows.Scan(&planetID, &researchType, &level); err != nil {
			return err
		}
		id, ok := planets[planetID]
		if !ok {
			continue
		}
		if levels[id] == nil {
			levels[id] = make(map[config.ResearchType]int)
		}
		levels[id][config.ResearchType(researchType)] = level
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, lvl := range levels {
		store.SetResearch(id, components.Research{Levels: lvl})
	}
	return nil
}

func (b *Bridge) loadFleets(ctx context.Context, store *ecs.Store, planets map[int64]ecs.EntityID) error {
	rows, err := b.pool.Query(ctx, `select planet_id, ship_type, count from fleets`)
	if err != nil {
		return err
	}
	defer rows.Close()

	counts := make(map[ecs.EntityID]map[config.ShipType]int64)
	for rows.Next() {
		var planetID int64
		var shipType string
		var count int64
		if err := rows.Scan(&planetID, &shipType, &count); err != nil {
			return err
		}
		id, ok := planets[planetID]
		if !ok {
			continue
		}
		if counts[id] == nil {
			counts[id] = make(map[config.ShipType]int64)
		}
		counts[id][config.ShipType(shipType)] = count
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, c := range counts {
		store.SetFleet(id, components.Fleet{Counts: c})
	}
	return nil
}

func (b *Bridge) loadBuildQueues(ctx context.Context, store *ecs.Store, planets map[int64]ecs.EntityID) error {
	rows, err := b.pool.Query(ctx, `select planet_id, building_type, completion_time, queued_at from building_queue order by planet_id, position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	items := make(map[ecs.EntityID][]components.BuildItem)
	for rows.Next() {
		var planetID int64
		var buildingType string
		var completion, queuedAt time.Time
		if err := rows.Scan(&planetID, &buildingType, &completion, &queuedAt); err != nil {
			return err
		}
		id, ok := planets[planetID]
		if !ok {
			continue
		}
		items[id] = append(items[id], components.BuildItem{
			Type:           config.BuildingType(buildingType),
			CompletionTime: completion,
			QueuedAt:       queuedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, it := range items {
		store.SetBuildQueue(id, components.BuildQueue{Items: it})
	}
	return nil
}

func (b *Bridge) loadShipQueues(ctx context.Context, store *ecs.Store, planets map[int64]ecs.EntityID, now time.Time) error {
	rows, err := b.pool.Query(ctx, `select planet_id, ship_type, count, completion_time, queued_at from ship_build_queue order by planet_id, position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	items := make(map[ecs.EntityID][]components.ShipBuildItem)
	for rows.Next() {
		var planetID int64
		var shipType string
		var count int64
		var completion, queuedAt time.Time
		if err := rows.Scan(&planetID, &shipType, &count, &completion, &queuedAt); err != nil {
			return err
		}
		id, ok := planets[planetID]
		if !ok {
			continue
		}
		items[id] = append(items[id], components.ShipBuildItem{
			Type:           config.ShipType(shipType),
			Count:          count,
			CompletionTime: completion,
			QueuedAt:       queuedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Step 6: a ship batch whose completion_time already elapsed is
	// applied to the fleet immediately rather than left for the
	// shipyard system to notice on its first run.
	for id, it := range items {
		var remaining []components.ShipBuildItem
		fl, _ := store.Fleet(id)
		if fl.Counts == nil {
			fl.Counts = make(map[config.ShipType]int64)
		}
		for _, item := range it {
			if !item.CompletionTime.After(now) {
				fl.Counts[item.Type] += item.Count
				continue
			}
			remaining = append(remaining, item)
		}
		store.SetFleet(id, fl)
		store.SetShipBuildQueue(id, components.ShipBuildQueue{Items: remaining})
	}
	return nil
}

func (b *Bridge) loadResearchQueues(ctx context.Context, store *ecs.Store, planets map[int64]ecs.EntityID) error {
	rows, err := b.pool.Query(ctx, `select planet_id, research_type, completion_time, queued_at from research_queue order by planet_id, position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	items := make(map[ecs.EntityID][]components.ResearchItem)
	for rows.Next() {
		var planetID int64
		var researchType string
		var completion, queuedAt time.Time
		if err := rows.Scan(&planetID, &researchType, &completion, &queuedAt); err != nil {
			return err
		}
		id, ok := planets[planetID]
		if !ok {
			continue
		}
		items[id] = append(items[id], components.ResearchItem{
			Type:           config.ResearchType(researchType),
			CompletionTime: completion,
			QueuedAt:       queuedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, it := range items {
		store.SetResearchQueue(id, components.ResearchQueue{Items: it})
	}
	return nil
}

func (b *Bridge) loadFleetMissions(ctx context.Context, store *ecs.Store, planets map[int64]ecs.EntityID) error {
	rows, err := b.pool.Query(ctx, `
		select planet_id, owner_id, mission, origin_galaxy, origin_system, origin_position,
			target_galaxy, target_system, target_position, departure_time, arrival_time,
			speed, recalled, colonizing_until
		from fleet_missions
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var planetID int64
		var mv components.FleetMovement
		var mission string
		if err := rows.Scan(&planetID, &mv.OwnerID, &mission,
			&mv.Origin.Galaxy, &mv.Origin.System, &mv.Origin.Position,
			&mv.Target.Galaxy, &mv.Target.System, &mv.Target.Position,
			&mv.DepartureTime, &mv.ArrivalTime, &mv.Speed, &mv.Recalled, &mv.ColonizingUntil); err != nil {
			return err
		}
		id, ok := planets[planetID]
		if !ok {
			continue
		}
		mv.Mission = components.Mission(mission)

		fl, _ := store.Fleet(id)
		mv.Ships = fl.Counts

		store.SetFleetMovement(id, mv)
	}

	return rows.Err()
}

// loadOpenTradeOffers hydrates still-open marketplace listings, ignoring
// ones already accepted or cancelled since those need no further action
// by the simulation.
func (b *Bridge) loadOpenTradeOffers(ctx context.Context, store *ecs.Store) error {
	rows, err := b.pool.Query(ctx, `
		select offer_id, seller_id, offered_resource, offered_qty, requested_resource, requested_qty, created_at
		from trade_offers where status = 'open'
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	seen := make(map[string]ecs.EntityID)
	for eid, o := range store.AllTradeOffers() {
		seen[o.ID] = eid
	}

	for rows.Next() {
		var offer components.TradeOffer
		var offeredResource, requestedResource int
		var offeredQty int64
		if err := rows.Scan(&offer.ID, &offer.SellerID, &offeredResource, &offeredQty, &requestedResource, &offer.RequestedQty, &offer.CreatedAt); err != nil {
			return err
		}
		offer.Status = components.TradeOfferOpen
		offer.RequestedRes = config.ResourceKind(requestedResource)
		switch config.ResourceKind(offeredResource) {
		case config.Metal:
			offer.Offered.Metal = offeredQty
		case config.Crystal:
			offer.Offered.Crystal = offeredQty
		default:
			offer.Offered.Deuterium = offeredQty
		}

		eid, ok := seen[offer.ID]
		if !ok {
			eid = store.CreateEntity()
			seen[offer.ID] = eid
		}
		store.SetTradeOffer(eid, offer)
	}

	return rows.Err()
}

// reconcileTradeCounters reads the highest offer_id and event_id already
// on disk and bumps ids/trades past them, so a restart's first
// TradeCreateOffer or trade event never reissues an id a surviving row
// still holds (spec §4.10, §4.13 step 3). Both columns store the
// allocator's decimal string verbatim, so the max has to be taken
// numerically rather than lexicographically ("9" would otherwise sort
// above "10").
func (b *Bridge) reconcileTradeCounters(ctx context.Context, ids *sim.IDAllocator, trades *market.Log) error {
	var maxOfferID int64
	if err := b.pool.QueryRow(ctx, `select coalesce(max(offer_id::bigint), 0) from trade_offers`).Scan(&maxOfferID); err != nil {
		return fmt.Errorf("reading max offer id: %w", err)
	}
	ids.Reconcile(uint64(maxOfferID))

	var maxEventID int64
	if err := b.pool.QueryRow(ctx, `select coalesce(max(event_id::bigint), 0) from trade_events`).Scan(&maxEventID); err != nil {
		return fmt.Errorf("reading max event id: %w", err)
	}
	trades.Reconcile(maxEventID)

	return nil
}
