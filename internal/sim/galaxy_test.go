package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarforge/coreserver/pkg/config"
)

func testGalaxyConfig() config.Config {
	return config.Config{
		GalaxyCount:        2,
		SystemsPerGalaxy:   3,
		PositionsPerSystem: 4,
		InitialPlanets:     10,
	}
}

func TestNewGalaxyPoolSeedsRequestedCount(t *testing.T) {
	pool := NewGalaxyPool(testGalaxyConfig())
	none := func(Coordinate) bool { return false }

	available := pool.Available(none, nil, nil, 0, 0)
	require.Len(t, available, 10)
}

func TestAvailableExcludesOccupiedAndFiltersByGalaxy(t *testing.T) {
	pool := NewGalaxyPool(testGalaxyConfig())
	none := func(Coordinate) bool { return false }
	all := pool.Available(none, nil, nil, 0, 0)
	require.NotEmpty(t, all)

	occupied := all[0]
	isOccupied := func(c Coordinate) bool { return c == occupied }

	filtered := pool.Available(isOccupied, nil, nil, 0, 0)
	assert.Len(t, filtered, len(all)-1)

	galaxy := occupied.Galaxy
	byGalaxy := pool.Available(none, &galaxy, nil, 0, 0)
	for _, c := range byGalaxy {
		assert.Equal(t, galaxy, c.Galaxy)
	}
}

func TestAvailablePages(t *testing.T) {
	pool := NewGalaxyPool(testGalaxyConfig())
	none := func(Coordinate) bool { return false }

	page := pool.Available(none, nil, nil, 3, 2)
	assert.Len(t, page, 3)
}

func TestNewGalaxyPoolClampsTargetToTotalSlots(t *testing.T) {
	cfg := testGalaxyConfig()
	cfg.InitialPlanets = 1000
	pool := NewGalaxyPool(cfg)
	none := func(Coordinate) bool { return false }

	available := pool.Available(none, nil, nil, 0, 0)
	assert.Len(t, available, cfg.GalaxyCount*cfg.SystemsPerGalaxy*cfg.PositionsPerSystem)
}
