// Package ecs implements the archetype-free entity store of spec §4.1:
// entities are opaque integer ids, components live in one table per
// type, and queries return the cross-product of entities carrying a
// requested tuple. The store is only ever touched from the simulation
// thread (spec §5), so none of its methods take a lock.
package ecs

import "github.com/stellarforge/coreserver/internal/components"

// EntityID is an opaque identifier. The zero value is never assigned to
// a live entity, so it doubles as a "no entity" sentinel.
type EntityID uint64

// Store holds one table per component type named in spec §3. Generic
// heterogeneous storage (a single `map[reflect.Type]any`) was considered
// and rejected: the component set is closed and known up front, and a
// field per type keeps `Get`/`Query` call sites free of type assertions.
type Store struct {
	nextID EntityID

	players             map[EntityID]components.Player
	positions           map[EntityID]components.Position
	resources           map[EntityID]components.Resources
	resourceProductions map[EntityID]components.ResourceProduction
	buildings           map[EntityID]components.Buildings
	buildQueues         map[EntityID]components.BuildQueue
	shipBuildQueues     map[EntityID]components.ShipBuildQueue
	fleets              map[EntityID]components.Fleet
	fleetMovements      map[EntityID]components.FleetMovement
	research            map[EntityID]components.Research
	researchQueues      map[EntityID]components.ResearchQueue
	planets             map[EntityID]components.Planet
	battles             map[EntityID]components.Battle
	tradeOffers         map[EntityID]components.TradeOffer
}

// New returns an empty store.
func New() *Store {
	return &Store{
		players:             make(map[EntityID]components.Player),
		positions:           make(map[EntityID]components.Position),
		resources:           make(map[EntityID]components.Resources),
		resourceProductions: make(map[EntityID]components.ResourceProduction),
		buildings:           make(map[EntityID]components.Buildings),
		buildQueues:         make(map[EntityID]components.BuildQueue),
		shipBuildQueues:     make(map[EntityID]components.ShipBuildQueue),
		fleets:              make(map[EntityID]components.Fleet),
		fleetMovements:      make(map[EntityID]components.FleetMovement),
		research:            make(map[EntityID]components.Research),
		researchQueues:      make(map[EntityID]components.ResearchQueue),
		planets:             make(map[EntityID]components.Planet),
		battles:             make(map[EntityID]components.Battle),
		tradeOffers:         make(map[EntityID]components.TradeOffer),
	}
}

// CreateEntity allocates a fresh id. Component attachment happens through
// the per-type Add/Set methods; there is no bulk "initial tuple" overload
// since Go lacks variadic heterogeneous parameters without reflection.
func (s *Store) CreateEntity() EntityID {
	s.nextID++
	return s.nextID
}

// Destroy removes an entity and every component it carries.
func (s *Store) Destroy(id EntityID) {
	delete(s.players, id)
	delete(s.positions, id)
	delete(s.resources, id)
	delete(s.resourceProductions, id)
	delete(s.buildings, id)
	delete(s.buildQueues, id)
	delete(s.shipBuildQueues, id)
	delete(s.fleets, id)
	delete(s.fleetMovements, id)
	delete(s.research, id)
	delete(s.researchQueues, id)
	delete(s.planets, id)
	delete(s.battles, id)
	delete(s.tradeOffers, id)
}

// ReconcileNextID bumps the id counter so a freshly hydrated entity never
// collides with one allocated before a restart (mirrors the id-counter
// reconciliation spec §4.13 step 3 requires for marketplace/report ids).
func (s *Store) ReconcileNextID(seen EntityID) {
	if seen > s.nextID {
		s.nextID = seen
	}
}
