package ecs

import "github.com/stellarforge/coreserver/internal/components"

func (s *Store) SetFleet(id EntityID, c components.Fleet) { s.fleets[id] = c }

func (s *Store) Fleet(id EntityID) (components.Fleet, bool) {
	c, ok := s.fleets[id]
	return c, ok
}

func (s *Store) SetFleetMovement(id EntityID, c components.FleetMovement) {
	s.fleetMovements[id] = c
}

func (s *Store) FleetMovement(id EntityID) (components.FleetMovement, bool) {
	c, ok := s.fleetMovements[id]
	return c, ok
}

// RemoveFleetMovement detaches a movement (invariant 4: at most one per
// entity); removing an absent one is a no-op per spec §4.1.
func (s *Store) RemoveFleetMovement(id EntityID) { delete(s.fleetMovements, id) }

// FleetMovements iterates every entity carrying the `{Fleet,
// FleetMovement}` tuple the fleet movement system (§4.8) requires.
func (s *Store) FleetMovements(fn func(id EntityID, fleet components.Fleet, mv components.FleetMovement)) {
	for id, mv := range s.fleetMovements {
		fleet := s.fleets[id]
		fn(id, fleet, mv)
	}
}
