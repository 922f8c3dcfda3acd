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

func newTestConstruction(t *testing.T) (*ecs.Store, *Construction) {
	t.Helper()
	store := ecs.New()
	log := logger.NewStdLogger("test", "localhost")
	t.Cleanup(log.Release)
	sink := events.New(log)
	return store, NewConstruction(store, sink, log)
}

// Spec §8 example 3: building completion does not retroactively affect
// this tick's production (tested jointly here against construction's
// own effect: completion happens, bumping metal_mine to 2).
func TestConstructionCompletesHeadAfterCompletionTime(t *testing.T) {
	store, sys := newTestConstruction(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{config.MetalMine: 1}})
	store.SetBuildQueue(id, components.BuildQueue{Items: []components.BuildItem{
		{Type: config.MetalMine, CompletionTime: now.Add(-time.Second)},
	}})

	sys.Run(now)

	bld, ok := store.Buildings(id)
	require.True(t, ok)
	assert.Equal(t, 2, bld.Level(config.MetalMine))

	q, ok := store.BuildQueue(id)
	require.True(t, ok)
	assert.Empty(t, q.Items)
}

func TestConstructionLeavesFutureHeadUntouched(t *testing.T) {
	store, sys := newTestConstruction(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{config.MetalMine: 1}})
	store.SetBuildQueue(id, components.BuildQueue{Items: []components.BuildItem{
		{Type: config.MetalMine, CompletionTime: now.Add(time.Hour)},
	}})

	sys.Run(now)

	bld, _ := store.Buildings(id)
	assert.Equal(t, 1, bld.Level(config.MetalMine))

	q, _ := store.BuildQueue(id)
	assert.Len(t, q.Items, 1)
}

func TestConstructionDropsMalformedHead(t *testing.T) {
	store, sys := newTestConstruction(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetBuildQueue(id, components.BuildQueue{Items: []components.BuildItem{
		{Type: config.MetalMine},
		{Type: config.CrystalMine, CompletionTime: now.Add(-time.Second)},
	}})

	sys.Run(now)

	q, ok := store.BuildQueue(id)
	require.True(t, ok)
	require.Len(t, q.Items, 1)
	assert.Equal(t, config.CrystalMine, q.Items[0].Type)
}

func TestBuildDurationRespectsMinFactor(t *testing.T) {
	cfg := config.Load()
	cfg.HyperspaceBuildFactor = 0.5
	cfg.RobotFactoryBuildFactor = 0.5
	cfg.MinBuildTimeFactor = 0.1

	d := BuildDuration(cfg, 100, 0, 2, 2)
	assert.Equal(t, 10*time.Second, d)
}
