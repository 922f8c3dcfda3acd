package ecs

import "github.com/stellarforge/coreserver/internal/components"

func (s *Store) SetBuildings(id EntityID, c components.Buildings) { s.buildings[id] = c }

func (s *Store) Buildings(id EntityID) (components.Buildings, bool) {
	c, ok := s.buildings[id]
	return c, ok
}

func (s *Store) SetBuildQueue(id EntityID, c components.BuildQueue) { s.buildQueues[id] = c }

func (s *Store) BuildQueue(id EntityID) (components.BuildQueue, bool) {
	c, ok := s.buildQueues[id]
	return c, ok
}

// BuildQueueHeads iterates every entity with a non-empty BuildQueue, as
// the construction system (§4.5) only ever inspects the head item.
func (s *Store) BuildQueueHeads(fn func(id EntityID, q components.BuildQueue)) {
	for id, q := range s.buildQueues {
		if len(q.Items) == 0 {
			continue
		}
		fn(id, q)
	}
}

func (s *Store) SetShipBuildQueue(id EntityID, c components.ShipBuildQueue) {
	s.shipBuildQueues[id] = c
}

func (s *Store) ShipBuildQueue(id EntityID) (components.ShipBuildQueue, bool) {
	c, ok := s.shipBuildQueues[id]
	return c, ok
}

// ShipBuildQueues iterates every entity with a non-empty ShipBuildQueue
// for the shipyard system's batch processing (§4.7).
func (s *Store) ShipBuildQueues(fn func(id EntityID, q components.ShipBuildQueue)) {
	for id, q := range s.shipBuildQueues {
		if len(q.Items) == 0 {
			continue
		}
		fn(id, q)
	}
}
