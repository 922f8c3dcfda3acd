package ecs

import "github.com/stellarforge/coreserver/internal/components"

func (s *Store) SetBattle(id EntityID, c components.Battle) { s.battles[id] = c }

func (s *Store) Battle(id EntityID) (components.Battle, bool) {
	c, ok := s.battles[id]
	return c, ok
}

func (s *Store) RemoveBattle(id EntityID) { delete(s.battles, id) }

// PendingBattles iterates every unresolved Battle for the battle system
// (§4.9) to check against `scheduled_time`.
func (s *Store) PendingBattles(fn func(id EntityID, b components.Battle)) {
	for id, b := range s.battles {
		if b.Resolved {
			continue
		}
		fn(id, b)
	}
}
