// Package systems implements the fixed per-tick pipeline of spec §4.3
// plus the command handlers of §4.11, all operating on the entity store
// of internal/ecs. Each system is grounded on the corresponding module
// under original_source/src/systems, generalized from the teacher's
// ORM-row style to the in-memory ECS spec §9 calls for, and ported
// faithfully to the exact formulas of spec §4.4-§4.9.
package systems

import (
	"math"
	"time"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/internal/events"
	"github.com/stellarforge/coreserver/pkg/config"
	"github.com/stellarforge/coreserver/pkg/logger"
)

// Production implements spec §4.4: per-entity resource accrual driven
// by building levels, energy balance, and planet modifiers. Grounded on
// original_source/src/systems/resource_production.py, extended with the
// fusion reactor, storage-capacity clamp, and planet temperature/size
// modifiers that the distilled spec adds on top of that module.
type Production struct {
	store *ecs.Store
	cfg   config.Config
	sink  *events.Sink
	log   logger.Logger

	lastDeficitNotify map[ecs.EntityID]time.Time
}

// NewProduction constructs the resource production system.
func NewProduction(store *ecs.Store, cfg config.Config, sink *events.Sink, log logger.Logger) *Production {
	return &Production{
		store:             store,
		cfg:               cfg,
		sink:              sink,
		log:               log,
		lastDeficitNotify: make(map[ecs.EntityID]time.Time),
	}
}

func (p *Production) Name() string { return "production" }

func (p *Production) Run(now time.Time) {
	p.store.ResourceProducers(func(id ecs.EntityID, res components.Resources, prod components.ResourceProduction, bld components.Buildings) {
		p.accrue(id, res, prod, bld, now)
	})
}

func (p *Production) accrue(id ecs.EntityID, res components.Resources, prod components.ResourceProduction, bld components.Buildings, now time.Time) {
	h := now.Sub(prod.LastUpdate).Hours()
	if h <= 0 {
		return
	}

	var plasmaLvl, energyLvl int
	if research, ok := p.store.Research(id); ok {
		plasmaLvl = research.Level(config.PlasmaTech)
		energyLvl = research.Level(config.EnergyTech)
	}

	planet, hasPlanet := p.store.Planet(id)

	solarLvl := bld.Level(config.SolarPlant)
	fusionLvl := bld.Level(config.FusionReactor)

	eProd := levelSeries(p.cfg.SolarBase, solarLvl, p.cfg.SolarGrowth) +
		levelSeries(p.cfg.FusionBase, fusionLvl, p.cfg.FusionGrowth)
	eProd *= 1 + p.cfg.EnergyTechBonus*float64(energyLvl)

	eReq := 0.0
	for _, bt := range []config.BuildingType{config.MetalMine, config.CrystalMine, config.DeuteriumSynthesizer} {
		lvl := bld.Level(bt)
		eReq += levelSeries(p.cfg.BaseConsumption[bt], lvl, p.cfg.ConsumptionGrowth)
	}

	rawFactor, appliedFactor := energyFactor(eProd, eReq, p.cfg.EnergyDeficitSoftFloor)
	if eReq > 0 && rawFactor <= p.cfg.EnergyDeficitNotifyThreshold {
		p.maybeNotifyDeficit(id, now, rawFactor)
	}

	sizeMult := 1.0
	tempMult := 1.0
	if hasPlanet {
		sizeMult = sizeMultiplier(planet.Size)
		tempMult = temperatureMultiplier(planet.Temperature)
	}

	metalProd := prod.MetalRate * math.Pow(p.cfg.ResourceGrowth, float64(bld.Level(config.MetalMine))) * h * appliedFactor * sizeMult
	crystalProd := prod.CrystalRate * math.Pow(p.cfg.ResourceGrowth, float64(bld.Level(config.CrystalMine))) * h * appliedFactor * sizeMult
	deutProd := prod.DeuteriumRate * math.Pow(p.cfg.ResourceGrowth, float64(bld.Level(config.DeuteriumSynthesizer))) * h * appliedFactor * sizeMult * tempMult

	plasmaBonus := 1 + p.cfg.PlasmaBonusPerLevel*float64(plasmaLvl)
	metalProd *= plasmaBonus
	crystalProd *= plasmaBonus
	deutProd *= plasmaBonus

	dMetal := int64(math.Round(metalProd))
	dCrystal := int64(math.Round(crystalProd))
	dDeut := int64(math.Round(deutProd))

	metalCap := capacity(p.cfg.StorageBaseCapacity[config.MetalStorage], bld.Level(config.MetalStorage), p.cfg.StorageGrowth, sizeMult)
	crystalCap := capacity(p.cfg.StorageBaseCapacity[config.CrystalStorage], bld.Level(config.CrystalStorage), p.cfg.StorageGrowth, sizeMult)
	deutCap := capacity(p.cfg.StorageBaseCapacity[config.DeuteriumTank], bld.Level(config.DeuteriumTank), p.cfg.StorageGrowth, sizeMult)

	newMetal := clampAdd(res.Metal, dMetal, metalCap)
	newCrystal := clampAdd(res.Crystal, dCrystal, crystalCap)
	newDeut := clampAdd(res.Deuterium, dDeut, deutCap)

	fusionConsumption := int64(math.Round(p.cfg.FusionDeutPerLevel * float64(fusionLvl) * h))
	newDeut -= fusionConsumption
	if newDeut < 0 {
		newDeut = 0
	}

	res.Metal, res.Crystal, res.Deuterium = newMetal, newCrystal, newDeut
	p.store.SetResources(id, res)

	prod.LastUpdate = now
	p.store.SetResourceProduction(id, prod)

	if dMetal != 0 || dCrystal != 0 || dDeut != 0 {
		p.emitResourceUpdate(id, dMetal, dCrystal, dDeut, res, now)
	}
}

func (p *Production) maybeNotifyDeficit(id ecs.EntityID, now time.Time, rawFactor float64) {
	if last, ok := p.lastDeficitNotify[id]; ok && now.Sub(last) < p.cfg.EnergyDeficitNotifyCooldown {
		return
	}
	p.lastDeficitNotify[id] = now

	player, ok := p.store.Player(id)
	if !ok {
		return
	}
	p.sink.Send(player.UserID, events.Message{
		Type: "energy_deficit",
		Payload: map[string]any{
			"factor": rawFactor,
			"ts":     now.Format(time.RFC3339),
		},
	})
}

func (p *Production) emitResourceUpdate(id ecs.EntityID, dMetal, dCrystal, dDeut int64, res components.Resources, now time.Time) {
	player, ok := p.store.Player(id)
	if !ok {
		return
	}
	p.sink.Send(player.UserID, events.Message{
		Type: "resource_update",
		Payload: map[string]any{
			"deltas": map[string]int64{"metal": dMetal, "crystal": dCrystal, "deuterium": dDeut},
			"totals": map[string]int64{"metal": res.Metal, "crystal": res.Crystal, "deuterium": res.Deuterium},
			"ts":     now.Format(time.RFC3339),
		},
	})
}

// levelSeries computes `base · level · growth^(level-1)` for level ≥ 1,
// and 0 for level 0 (spec §4.4 steps 3-4).
func levelSeries(base float64, level int, growth float64) float64 {
	if level <= 0 {
		return 0
	}
	return base * float64(level) * math.Pow(growth, float64(level-1))
}

// energyFactor implements spec §4.4 step 5: returns the raw ratio (used
// for the deficit-notification threshold check) and the applied factor
// (floored at the configured soft floor; both are 0 when no energy is
// produced).
func energyFactor(produced, required, softFloor float64) (raw float64, applied float64) {
	if required <= 0 {
		return 1.0, 1.0
	}
	if produced <= 0 {
		return 0.0, 0.0
	}
	raw = math.Min(1.0, produced/required)
	applied = math.Max(raw, softFloor)
	return raw, applied
}

// capacity implements spec §4.4 step 8's clamp target:
// `capacity = base_capacity · growth^storage_level · size_mult`.
func capacity(base float64, level int, growth float64, sizeMult float64) int64 {
	return int64(math.Round(base * math.Pow(growth, float64(level)) * sizeMult))
}

func clampAdd(current, delta, cap int64) int64 {
	next := current + delta
	if next > cap {
		next = cap
	}
	if next < 0 {
		next = 0
	}
	return next
}

// sizeMultiplier buckets planet size into a production multiplier
// applied to all three resources (spec §4.4 step 6). The default
// planet-generation range (PLANET_SIZE_MIN..MAX, 100..200) sits entirely
// in the neutral band, matching the "size/temp modifiers 1.0" worked
// examples of spec §8; planets outside the default generation bounds
// (a narrower/wider config, or manually seeded data) fall into the
// bonus/penalty bands.
func sizeMultiplier(size int) float64 {
	switch {
	case size < 100:
		return 0.9
	case size < 200:
		return 1.0
	case size < 300:
		return 1.05
	default:
		return 1.1
	}
}

// temperatureMultiplier buckets planet temperature into a deuterium-only
// production multiplier (colder planets yield more deuterium). The
// default generation range (-20..20) sits in the neutral band for the
// same reason as sizeMultiplier.
func temperatureMultiplier(temp int) float64 {
	switch {
	case temp < -20:
		return 1.2
	case temp <= 20:
		return 1.0
	default:
		return 0.9
	}
}
