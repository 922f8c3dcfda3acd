package systems

import (
	"math/rand"
	"time"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/pkg/config"
)

// handleChooseStart implements E.3's starter-planet choice flow: a user
// with no entity yet picks an unoccupied coordinate and materializes
// their single-planet entity there, seeded with the configured starter
// resources. Distinct from colonize-by-fleet (§4.8), which relocates an
// existing entity's position instead of creating one.
func (c *Commands) handleChooseStart(cmd sim.Command, now time.Time) {
	if _, _, ok := c.store.FindPlayerByUserID(cmd.UserID); ok {
		c.replyResult(cmd, nil, errRejected("player already has a planet"))
		return
	}

	target := cmd.Target
	if target.Galaxy < 1 || target.Galaxy > c.cfg.GalaxyCount ||
		target.System < 1 || target.System > c.cfg.SystemsPerGalaxy ||
		target.Position < 1 || target.Position > c.cfg.PositionsPerSystem {
		c.replyResult(cmd, nil, errRejected("coordinate out of bounds"))
		return
	}

	coord := components.Coordinate{Galaxy: target.Galaxy, System: target.System, Position: target.Position}
	if _, occupied := c.store.FindPlanetByCoordinate(coord); occupied {
		c.replyResult(cmd, nil, errRejected("coordinate already occupied"))
		return
	}

	id := c.store.CreateEntity()
	c.store.SetPlayer(id, components.Player{UserID: cmd.UserID, LastActive: now})
	c.store.SetPosition(id, components.Position{Galaxy: coord.Galaxy, System: coord.System, Position: coord.Position})
	c.store.SetPlanet(id, components.Planet{
		OwnerID:     cmd.UserID,
		Temperature: randBetween(c.cfg.PlanetTempMin, c.cfg.PlanetTempMax),
		Size:        randBetween(c.cfg.PlanetSizeMin, c.cfg.PlanetSizeMax),
	})
	c.store.SetResources(id, components.Resources{
		Metal: c.cfg.StarterMetal, Crystal: c.cfg.StarterCrystal, Deuterium: c.cfg.StarterDeuterium,
	})
	c.store.SetResourceProduction(id, components.ResourceProduction{
		MetalRate: c.cfg.BaseMetalRate, CrystalRate: c.cfg.BaseCrystalRate, DeuteriumRate: c.cfg.BaseDeuteriumRate,
		LastUpdate: now,
	})
	c.store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{}})
	c.store.SetResearch(id, components.Research{Levels: map[config.ResearchType]int{}})
	c.store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{}})

	c.replyResult(cmd, coord, nil)
}

// randBetween returns a value in [lo, hi]; if the range is degenerate it
// returns lo unchanged.
func randBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.Intn(hi-lo+1)
}
