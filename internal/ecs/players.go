package ecs

import "github.com/stellarforge/coreserver/internal/components"

func (s *Store) SetPlayer(id EntityID, c components.Player) { s.players[id] = c }

func (s *Store) Player(id EntityID) (components.Player, bool) {
	c, ok := s.players[id]
	return c, ok
}

func (s *Store) RemovePlayer(id EntityID) { delete(s.players, id) }

// FindPlayerByUserID is the lookup the request adapter and command
// ingress use to resolve an external user id to an entity (spec §6.1
// routes are all scoped by `{id}` meaning the user id, not the entity id).
func (s *Store) FindPlayerByUserID(userID string) (EntityID, components.Player, bool) {
	for id, p := range s.players {
		if p.UserID == userID {
			return id, p, true
		}
	}
	return 0, components.Player{}, false
}

func (s *Store) SetPosition(id EntityID, c components.Position) { s.positions[id] = c }

func (s *Store) Position(id EntityID) (components.Position, bool) {
	c, ok := s.positions[id]
	return c, ok
}

func (s *Store) RemovePosition(id EntityID) { delete(s.positions, id) }

// AllPlayers returns every (id, Player) pair. Iteration order is
// unspecified; callers that need stability within a tick (cleanup,
// snapshotting) must not rely on map order across calls mutating the
// table mid-iteration, which this store never does.
func (s *Store) AllPlayers() map[EntityID]components.Player {
	return s.players
}
