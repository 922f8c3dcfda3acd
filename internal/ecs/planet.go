package ecs

import "github.com/stellarforge/coreserver/internal/components"

func (s *Store) SetPlanet(id EntityID, c components.Planet) { s.planets[id] = c }

func (s *Store) Planet(id EntityID) (components.Planet, bool) {
	c, ok := s.planets[id]
	return c, ok
}

// FindPlanetByCoordinate enforces invariant 6 (a coordinate is owned by
// at most one player) by giving callers a way to check occupancy before
// colonizing.
func (s *Store) FindPlanetByCoordinate(c components.Coordinate) (EntityID, bool) {
	for id, pos := range s.positions {
		if pos.Galaxy == c.Galaxy && pos.System == c.System && pos.Position == c.Position {
			return id, true
		}
	}
	return 0, false
}

func (s *Store) AllPlanets() map[EntityID]components.Planet {
	return s.planets
}
