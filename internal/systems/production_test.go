package systems

import (
	"testing"
	"time"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/internal/events"
	"github.com/stellarforge/coreserver/pkg/config"
	"github.com/stellarforge/coreserver/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduction(t *testing.T) (*ecs.Store, *Production) {
	t.Helper()
	cfg := config.Load()
	store := ecs.New()
	log := logger.NewStdLogger("test", "localhost")
	t.Cleanup(log.Release)
	sink := events.New(log)
	return store, NewProduction(store, cfg, sink, log)
}

// Spec §8 example 1: production, 1h, saturated energy.
func TestProductionSaturatedEnergyOneHour(t *testing.T) {
	store, sys := newTestProduction(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetResources(id, components.Resources{})
	store.SetResourceProduction(id, components.ResourceProduction{
		MetalRate: 60, CrystalRate: 30, DeuteriumRate: 15,
		LastUpdate: now.Add(-time.Hour),
	})
	store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{
		config.MetalMine: 1, config.CrystalMine: 1, config.DeuteriumSynthesizer: 1,
		config.SolarPlant: 50,
		config.MetalStorage: 10, config.CrystalStorage: 10, config.DeuteriumTank: 10,
	}})
	store.SetPlanet(id, components.Planet{Size: 150, Temperature: 0})

	sys.Run(now)

	res, ok := store.Resources(id)
	require.True(t, ok)
	assert.Equal(t, int64(66), res.Metal)
	assert.Equal(t, int64(33), res.Crystal)
	assert.Equal(t, int64(17), res.Deuterium)
}

// Spec §8 example 2: partial energy, factor=0.5.
func TestProductionPartialEnergyFactor(t *testing.T) {
	store, sys := newTestProduction(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetResources(id, components.Resources{})
	store.SetResourceProduction(id, components.ResourceProduction{
		MetalRate: 60, CrystalRate: 30, DeuteriumRate: 15,
		LastUpdate: now.Add(-time.Hour),
	})
	store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{
		config.MetalMine: 8, config.CrystalMine: 4, config.DeuteriumSynthesizer: 4,
		config.SolarPlant: 1,
		config.MetalStorage: 20, config.CrystalStorage: 20, config.DeuteriumTank: 20,
	}})
	store.SetPlanet(id, components.Planet{Size: 150, Temperature: 0})

	sys.Run(now)

	res, ok := store.Resources(id)
	require.True(t, ok)
	assert.Equal(t, int64(64), res.Metal)
}

// Spec §8 boundary: solar_plant=0 with mines on yields zero production.
func TestProductionZeroSolarYieldsZeroProduction(t *testing.T) {
	store, sys := newTestProduction(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetResources(id, components.Resources{Metal: 500})
	store.SetResourceProduction(id, components.ResourceProduction{
		MetalRate: 60, CrystalRate: 30, DeuteriumRate: 15,
		LastUpdate: now.Add(-time.Hour),
	})
	store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{
		config.MetalMine: 5, config.CrystalMine: 5, config.DeuteriumSynthesizer: 5,
		config.MetalStorage: 20, config.CrystalStorage: 20, config.DeuteriumTank: 20,
	}})
	store.SetPlanet(id, components.Planet{Size: 150, Temperature: 0})

	sys.Run(now)

	res, ok := store.Resources(id)
	require.True(t, ok)
	assert.Equal(t, int64(500), res.Metal)
}

func TestProductionSkipsWhenNoElapsedTime(t *testing.T) {
	store, sys := newTestProduction(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetResources(id, components.Resources{Metal: 10})
	store.SetResourceProduction(id, components.ResourceProduction{
		MetalRate: 60, LastUpdate: now,
	})
	store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{config.MetalMine: 1}})

	sys.Run(now)

	res, _ := store.Resources(id)
	assert.Equal(t, int64(10), res.Metal)
}

func TestProductionClampsToStorageCapacity(t *testing.T) {
	store, sys := newTestProduction(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetResources(id, components.Resources{Metal: 9990})
	store.SetResourceProduction(id, components.ResourceProduction{
		MetalRate: 60, LastUpdate: now.Add(-time.Hour),
	})
	store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{
		config.MetalMine: 1, config.SolarPlant: 50,
	}})
	store.SetPlanet(id, components.Planet{Size: 150, Temperature: 0})

	sys.Run(now)

	res, ok := store.Resources(id)
	require.True(t, ok)
	assert.LessOrEqual(t, res.Metal, int64(10000))
}
