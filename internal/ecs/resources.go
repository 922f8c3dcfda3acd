package ecs

import "github.com/stellarforge/coreserver/internal/components"

func (s *Store) SetResources(id EntityID, c components.Resources) { s.resources[id] = c }

func (s *Store) Resources(id EntityID) (components.Resources, bool) {
	c, ok := s.resources[id]
	return c, ok
}

func (s *Store) SetResourceProduction(id EntityID, c components.ResourceProduction) {
	s.resourceProductions[id] = c
}

func (s *Store) ResourceProduction(id EntityID) (components.ResourceProduction, bool) {
	c, ok := s.resourceProductions[id]
	return c, ok
}

// ResourceProducers iterates entities carrying the full
// `{Resources, ResourceProduction, Buildings}` tuple the production
// system (§4.4) requires.
func (s *Store) ResourceProducers(fn func(id EntityID, res components.Resources, prod components.ResourceProduction, bld components.Buildings)) {
	for id, res := range s.resources {
		prod, ok := s.resourceProductions[id]
		if !ok {
			continue
		}
		bld, ok := s.buildings[id]
		if !ok {
			continue
		}
		fn(id, res, prod, bld)
	}
}
