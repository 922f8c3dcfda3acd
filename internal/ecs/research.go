package ecs

import "github.com/stellarforge/coreserver/internal/components"

func (s *Store) SetResearch(id EntityID, c components.Research) { s.research[id] = c }

func (s *Store) Research(id EntityID) (components.Research, bool) {
	c, ok := s.research[id]
	return c, ok
}

func (s *Store) SetResearchQueue(id EntityID, c components.ResearchQueue) {
	s.researchQueues[id] = c
}

func (s *Store) ResearchQueue(id EntityID) (components.ResearchQueue, bool) {
	c, ok := s.researchQueues[id]
	return c, ok
}

// ResearchQueueHeads iterates every entity with a non-empty ResearchQueue
// for the research system (§4.6).
func (s *Store) ResearchQueueHeads(fn func(id EntityID, q components.ResearchQueue)) {
	for id, q := range s.researchQueues {
		if len(q.Items) == 0 {
			continue
		}
		fn(id, q)
	}
}
