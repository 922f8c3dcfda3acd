package ecs

import (
	"testing"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stretchr/testify/assert"
)

func TestCreateEntityAllocatesDistinctIDs(t *testing.T) {
	s := New()
	a := s.CreateEntity()
	b := s.CreateEntity()
	assert.NotEqual(t, a, b)
	assert.NotZero(t, a)
	assert.NotZero(t, b)
}

func TestDestroyRemovesAllComponents(t *testing.T) {
	s := New()
	id := s.CreateEntity()
	s.SetPlayer(id, components.Player{Name: "nova"})
	s.SetResources(id, components.Resources{Metal: 100})

	s.Destroy(id)

	_, ok := s.Player(id)
	assert.False(t, ok)
	_, ok = s.Resources(id)
	assert.False(t, ok)
}

func TestRemoveMissingComponentIsNoOp(t *testing.T) {
	s := New()
	id := s.CreateEntity()
	assert.NotPanics(t, func() {
		s.RemoveFleetMovement(id)
		s.RemoveBattle(id)
	})
}

func TestResourceProducersOnlyYieldsFullTuple(t *testing.T) {
	s := New()
	complete := s.CreateEntity()
	s.SetResources(complete, components.Resources{Metal: 10})
	s.SetResourceProduction(complete, components.ResourceProduction{})
	s.SetBuildings(complete, components.Buildings{})

	partial := s.CreateEntity()
	s.SetResources(partial, components.Resources{Metal: 5})

	seen := map[EntityID]bool{}
	s.ResourceProducers(func(id EntityID, _ components.Resources, _ components.ResourceProduction, _ components.Buildings) {
		seen[id] = true
	})

	assert.True(t, seen[complete])
	assert.False(t, seen[partial])
}

func TestReconcileNextIDOnlyMovesForward(t *testing.T) {
	s := New()
	s.CreateEntity()
	s.ReconcileNextID(100)
	next := s.CreateEntity()
	assert.Equal(t, EntityID(101), next)

	s.ReconcileNextID(5)
	after := s.CreateEntity()
	assert.Equal(t, EntityID(102), after)
}

func TestFindPlanetByCoordinateRespectsOccupancy(t *testing.T) {
	s := New()
	id := s.CreateEntity()
	coord := components.Coordinate{Galaxy: 1, System: 2, Position: 3}
	s.SetPosition(id, components.Position{Galaxy: coord.Galaxy, System: coord.System, Position: coord.Position})

	found, ok := s.FindPlanetByCoordinate(coord)
	assert.True(t, ok)
	assert.Equal(t, id, found)

	_, ok = s.FindPlanetByCoordinate(components.Coordinate{Galaxy: 9, System: 9, Position: 9})
	assert.False(t, ok)
}
