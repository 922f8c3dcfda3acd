package config

// defaultBuildingSpecs :
// Static balancing table for spec §3's `Buildings` component. Costs and
// base times follow the shape of the classic OGame-style building ladder
// that the teacher's `internal/model/buildings_module.go` seeded into its
// database; here they live as Go data since the whole world is in-memory
// (§9: "the module-global singleton entity store").
func defaultBuildingSpecs() map[BuildingType]BuildingSpec {
	return map[BuildingType]BuildingSpec{
		MetalMine: {
			BaseCost:     Cost{Metal: 60, Crystal: 15},
			CostGrowth:   1.5,
			BaseTimeSecs: 60,
		},
		CrystalMine: {
			BaseCost:     Cost{Metal: 48, Crystal: 24},
			CostGrowth:   1.6,
			BaseTimeSecs: 60,
		},
		DeuteriumSynthesizer: {
			BaseCost:     Cost{Metal: 225, Crystal: 75},
			CostGrowth:   1.5,
			BaseTimeSecs: 90,
		},
		SolarPlant: {
			BaseCost:     Cost{Metal: 75, Crystal: 30},
			CostGrowth:   1.5,
			BaseTimeSecs: 90,
		},
		FusionReactor: {
			BaseCost:     Cost{Metal: 900, Crystal: 360, Deuterium: 180},
			CostGrowth:   1.8,
			BaseTimeSecs: 600,
			Requires:     map[BuildingType]int{},
		},
		RobotFactory: {
			BaseCost:     Cost{Metal: 400, Crystal: 120, Deuterium: 200},
			CostGrowth:   2.0,
			BaseTimeSecs: 1800,
		},
		Shipyard: {
			BaseCost:     Cost{Metal: 400, Crystal: 200, Deuterium: 100},
			CostGrowth:   2.0,
			BaseTimeSecs: 1800,
			Requires:     map[BuildingType]int{RobotFactory: 2},
		},
		ResearchLab: {
			BaseCost:     Cost{Metal: 200, Crystal: 400, Deuterium: 200},
			CostGrowth:   2.0,
			BaseTimeSecs: 1800,
		},
		MetalStorage: {
			BaseCost:     Cost{Metal: 1000},
			CostGrowth:   2.0,
			BaseTimeSecs: 3600,
		},
		CrystalStorage: {
			BaseCost:     Cost{Metal: 1000, Crystal: 500},
			CostGrowth:   2.0,
			BaseTimeSecs: 3600,
		},
		DeuteriumTank: {
			BaseCost:     Cost{Metal: 1000, Crystal: 1000},
			CostGrowth:   2.0,
			BaseTimeSecs: 3600,
		},
	}
}

// defaultResearchSpecs :
// Static balancing table for spec §3's `Research` component, with the
// prerequisite graph of spec §4.6 (`ion` needs `laser≥4`, `hyperspace`
// needs `energy≥6`+`laser≥6`, `plasma` needs `energy≥8`+`ion≥5`).
func defaultResearchSpecs() map[ResearchType]ResearchSpec {
	return map[ResearchType]ResearchSpec{
		EnergyTech: {
			BaseCost:     Cost{Metal: 0, Crystal: 800, Deuterium: 400},
			CostGrowth:   1.6,
			BaseTimeSecs: 3600,
		},
		LaserTech: {
			BaseCost:     Cost{Metal: 200, Crystal: 100},
			CostGrowth:   1.6,
			BaseTimeSecs: 3600,
			RequiresTech: map[ResearchType]int{EnergyTech: 2},
		},
		IonTech: {
			BaseCost:     Cost{Metal: 1000, Crystal: 300, Deuterium: 100},
			CostGrowth:   1.6,
			BaseTimeSecs: 7200,
			RequiresTech: map[ResearchType]int{LaserTech: 4},
		},
		HyperspaceTech: {
			BaseCost:     Cost{Metal: 0, Crystal: 4000, Deuterium: 2000},
			CostGrowth:   1.6,
			BaseTimeSecs: 10800,
			RequiresTech: map[ResearchType]int{EnergyTech: 6, LaserTech: 6},
		},
		PlasmaTech: {
			BaseCost:     Cost{Metal: 2000, Crystal: 4000, Deuterium: 1000},
			CostGrowth:   1.6,
			BaseTimeSecs: 21600,
			RequiresTech: map[ResearchType]int{EnergyTech: 8, IonTech: 5},
		},
		ComputerTech: {
			BaseCost:     Cost{Metal: 0, Crystal: 400, Deuterium: 600},
			CostGrowth:   1.6,
			BaseTimeSecs: 1800,
		},
	}
}

// defaultShipSpecs :
// Static balancing table for spec §3's `Fleet` component and the battle
// formulas of §4.9. Values match the example computations of spec §8
// (`light_fighter` attack 50 / shield 10 / cost 3000 metal + 1000 crystal
// yields the exact `attacker_power=100, defender_power=50` worked example
// for a 2-vs-1 light fighter engagement).
func defaultShipSpecs() map[ShipType]ShipSpec {
	return map[ShipType]ShipSpec{
		LightFighter: {
			Cost:          Cost{Metal: 3000, Crystal: 1000},
			BaseAttack:    50,
			BaseShield:    10,
			Speed:         12500,
			BuildTimeSecs: 1800,
		},
		HeavyFighter: {
			Cost:          Cost{Metal: 6000, Crystal: 4000},
			BaseAttack:    150,
			BaseShield:    25,
			Speed:         10000,
			BuildTimeSecs: 3600,
		},
		Cruiser: {
			Cost:          Cost{Metal: 20000, Crystal: 7000, Deuterium: 2000},
			BaseAttack:    400,
			BaseShield:    50,
			Speed:         15000,
			BuildTimeSecs: 7200,
		},
		Battleship: {
			Cost:          Cost{Metal: 45000, Crystal: 15000},
			BaseAttack:    1000,
			BaseShield:    200,
			Speed:         10000,
			BuildTimeSecs: 14400,
		},
		Bomber: {
			Cost:          Cost{Metal: 50000, Crystal: 25000, Deuterium: 15000},
			BaseAttack:    1000,
			BaseShield:    500,
			Speed:         4000,
			BuildTimeSecs: 21600,
		},
		ColonyShip: {
			Cost:          Cost{Metal: 10000, Crystal: 20000, Deuterium: 10000},
			BaseAttack:    0,
			BaseShield:    0,
			Speed:         2500,
			BuildTimeSecs: 7200,
		},
	}
}
