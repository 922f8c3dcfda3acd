package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ResourceKind :
// Enumerates the three tradable/producible resources of spec §3.
type ResourceKind int

const (
	Metal ResourceKind = iota
	Crystal
	Deuterium
)

// BuildingType :
// Enumerates the building kinds of spec §3's `Buildings` component.
type BuildingType string

const (
	MetalMine              BuildingType = "metal_mine"
	CrystalMine             BuildingType = "crystal_mine"
	DeuteriumSynthesizer     BuildingType = "deuterium_synthesizer"
	SolarPlant               BuildingType = "solar_plant"
	FusionReactor            BuildingType = "fusion_reactor"
	RobotFactory             BuildingType = "robot_factory"
	Shipyard                 BuildingType = "shipyard"
	ResearchLab              BuildingType = "research_lab"
	MetalStorage             BuildingType = "metal_storage"
	CrystalStorage           BuildingType = "crystal_storage"
	DeuteriumTank            BuildingType = "deuterium_tank"
)

// ResearchType :
// Enumerates the technologies of spec §3's `Research` component.
type ResearchType string

const (
	EnergyTech     ResearchType = "energy"
	LaserTech      ResearchType = "laser"
	IonTech        ResearchType = "ion"
	HyperspaceTech ResearchType = "hyperspace"
	PlasmaTech     ResearchType = "plasma"
	ComputerTech   ResearchType = "computer"
)

// ShipType :
// Enumerates the ship kinds of spec §3's `Fleet` component.
type ShipType string

const (
	LightFighter ShipType = "light_fighter"
	HeavyFighter ShipType = "heavy_fighter"
	Cruiser      ShipType = "cruiser"
	Battleship   ShipType = "battleship"
	Bomber       ShipType = "bomber"
	ColonyShip   ShipType = "colony_ship"
)

// Cost :
// A resource bundle, used both as the cost of an upgrade/unit and as the
// escrowed amount of a marketplace offer.
type Cost struct {
	Metal     int64
	Crystal   int64
	Deuterium int64
}

// BuildingSpec :
// Static balancing data for a single building type (spec §4.5).
type BuildingSpec struct {
	BaseCost     Cost
	CostGrowth   float64 // cost multiplier per existing level
	BaseTimeSecs float64
	Requires     map[BuildingType]int
}

// ResearchSpec :
// Static balancing data for a single technology (spec §4.6).
type ResearchSpec struct {
	BaseCost       Cost
	CostGrowth     float64
	BaseTimeSecs   float64
	RequiresTech   map[ResearchType]int
}

// ShipSpec :
// Static balancing data for a single ship type (spec §4.7-§4.9).
type ShipSpec struct {
	Cost           Cost
	BaseAttack     int64
	BaseShield     int64
	Speed          float64 // distance units per hour
	BuildTimeSecs  float64 // per unit, before factors
}

// Config :
// Everything spec §6.4 names as a recognized environment option, plus the
// balancing tables (building/research/ship costs) that the teacher stored
// as DB-seeded rows and that this in-memory simulation keeps as code-level
// defaults (still overridable per-field through the environment where the
// value is a single scalar).
type Config struct {
	// Scheduler (C5).
	TickRate            time.Duration
	SaveInterval        time.Duration
	PersistInterval     time.Duration
	CleanupInterval     time.Duration

	// Persistence (C6).
	EnableDB       bool
	DevCreateAll   bool
	DatabaseURL    string
	ReadReplicaURLs []string
	DBPoolMaxConns  int32
	DBPoolMinConns  int32

	// Universe topology.
	GalaxyCount       int
	SystemsPerGalaxy  int
	PositionsPerSystem int
	InitialPlanets    int
	MaxPlayers        int

	RequireStartChoice bool
	StarterMetal       int64
	StarterCrystal     int64
	StarterDeuterium   int64

	PlanetSizeMin int
	PlanetSizeMax int
	PlanetTempMin int
	PlanetTempMax int

	// Resource production (§4.4).
	BaseMetalRate        float64
	BaseCrystalRate      float64
	BaseDeuteriumRate    float64
	UseConfigProductionRates bool
	ResourceGrowth       float64 // the "1.1" in base_rate * 1.1^level

	ConsumptionGrowth float64
	BaseConsumption   map[BuildingType]float64

	SolarBase    float64
	SolarGrowth  float64
	FusionBase   float64
	FusionGrowth float64
	EnergyTechBonus float64
	FusionDeutPerLevel float64

	EnergyDeficitSoftFloor      float64
	EnergyDeficitNotifyThreshold float64
	EnergyDeficitNotifyCooldown time.Duration

	PlasmaBonusPerLevel float64

	StorageBaseCapacity map[BuildingType]float64
	StorageGrowth       float64

	// Construction (§4.5).
	BuildingSpecs map[BuildingType]BuildingSpec
	BuildingCostGrowthDefault float64
	HyperspaceBuildFactor  float64
	RobotFactoryBuildFactor float64
	MinBuildTimeFactor     float64
	DemolitionRefundRate   float64
	CancelBuildRefundRate  float64

	// Research (§4.6).
	ResearchSpecs map[ResearchType]ResearchSpec
	ResearchLabFactor     float64
	MinResearchTimeFactor float64

	// Shipyard (§4.7).
	ShipSpecs                map[ShipType]ShipSpec
	ShipyardBuildFactor      float64
	ShipyardQueueBase        int
	ShipyardQueuePerLevel    int
	BaseMaxFleetSize         int64
	FleetSizePerComputerLevel int64

	// Fleet movement (§4.8).
	ColonizationTime time.Duration

	// Marketplace (§4.10).
	TradeTransactionFeeRate float64
	ExchangeRatioMetalCrystal   float64
	ExchangeRatioMetalDeuterium float64
	ExchangeRatioCrystalDeuterium float64

	// Inactivity cleanup (§4.2 step 4, §4.12).
	CleanupDays int

	// Request adapter (§C8, out of scope body but config still applies).
	JWTSecret                string
	JWTAlgorithm             string
	AccessTokenExpireMinutes int
	RateLimitPerMinute       int

	// Metrics/logging.
	MetricsAddr string

	// Request adapter HTTP listener (§6.1, §6.2).
	APIAddr            string
	CommandWaitTimeout time.Duration
}

// Load :
// Reads the environment (optionally seeded from a local `.env` file, the
// way `acdtunes-spacetraders` loads its dev configuration) through viper
// and returns a fully populated `Config`, defaults applied for anything
// unset. Mirrors the teacher's `arguments.Parse` layering of flags over a
// config file, generalized to env-first since this is a server meant to
// run in a container rather than from a developer's config file.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	setDefaults(v)

	cfg := Config{
		TickRate:        time.Duration(v.GetFloat64("TICK_RATE") * float64(time.Second)),
		SaveInterval:    time.Duration(v.GetFloat64("SAVE_INTERVAL_SECONDS") * float64(time.Second)),
		PersistInterval: time.Duration(v.GetFloat64("PERSIST_INTERVAL_SECONDS") * float64(time.Second)),
		CleanupInterval: 24 * time.Hour,

		EnableDB:        v.GetBool("ENABLE_DB"),
		DevCreateAll:    v.GetBool("DEV_CREATE_ALL"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		ReadReplicaURLs: v.GetStringSlice("READ_REPLICA_URLS"),
		DBPoolMaxConns:  int32(v.GetInt("DB_POOL_MAX_CONNS")),
		DBPoolMinConns:  int32(v.GetInt("DB_POOL_MIN_CONNS")),

		GalaxyCount:        v.GetInt("GALAXY_COUNT"),
		SystemsPerGalaxy:   v.GetInt("SYSTEMS_PER_GALAXY"),
		PositionsPerSystem: v.GetInt("POSITIONS_PER_SYSTEM"),
		InitialPlanets:     v.GetInt("INITIAL_PLANETS"),
		MaxPlayers:         v.GetInt("MAX_PLAYERS"),

		RequireStartChoice: v.GetBool("REQUIRE_START_CHOICE"),
		StarterMetal:       v.GetInt64("STARTER_METAL"),
		StarterCrystal:     v.GetInt64("STARTER_CRYSTAL"),
		StarterDeuterium:   v.GetInt64("STARTER_DEUTERIUM"),

		PlanetSizeMin: v.GetInt("PLANET_SIZE_MIN"),
		PlanetSizeMax: v.GetInt("PLANET_SIZE_MAX"),
		PlanetTempMin: v.GetInt("PLANET_TEMPERATURE_MIN"),
		PlanetTempMax: v.GetInt("PLANET_TEMPERATURE_MAX"),

		BaseMetalRate:            v.GetFloat64("BASE_METAL_RATE"),
		BaseCrystalRate:          v.GetFloat64("BASE_CRYSTAL_RATE"),
		BaseDeuteriumRate:        v.GetFloat64("BASE_DEUTERIUM_RATE"),
		UseConfigProductionRates: v.GetBool("USE_CONFIG_PRODUCTION_RATES"),
		ResourceGrowth:           v.GetFloat64("RESOURCE_GROWTH"),

		ConsumptionGrowth: v.GetFloat64("ENERGY_CONSUMPTION_GROWTH"),
		BaseConsumption: map[BuildingType]float64{
			MetalMine:            v.GetFloat64("ENERGY_BASE_CONSUMPTION_METAL_MINE"),
			CrystalMine:          v.GetFloat64("ENERGY_BASE_CONSUMPTION_CRYSTAL_MINE"),
			DeuteriumSynthesizer: v.GetFloat64("ENERGY_BASE_CONSUMPTION_DEUTERIUM_SYNTHESIZER"),
		},

		SolarBase:           v.GetFloat64("SOLAR_PLANT_BASE"),
		SolarGrowth:         v.GetFloat64("SOLAR_PLANT_GROWTH"),
		FusionBase:          v.GetFloat64("FUSION_REACTOR_BASE"),
		FusionGrowth:        v.GetFloat64("FUSION_REACTOR_GROWTH"),
		EnergyTechBonus:     v.GetFloat64("ENERGY_TECH_BONUS"),
		FusionDeutPerLevel:  v.GetFloat64("FUSION_DEUT_PER_LEVEL"),

		EnergyDeficitSoftFloor:       v.GetFloat64("ENERGY_DEFICIT_SOFT_FLOOR"),
		EnergyDeficitNotifyThreshold: v.GetFloat64("ENERGY_DEFICIT_NOTIFY_THRESHOLD"),
		EnergyDeficitNotifyCooldown:  v.GetDuration("ENERGY_DEFICIT_NOTIFY_COOLDOWN"),

		PlasmaBonusPerLevel: v.GetFloat64("PLASMA_BONUS_PER_LEVEL"),

		StorageBaseCapacity: map[BuildingType]float64{
			MetalStorage:     v.GetFloat64("METAL_STORAGE_BASE_CAPACITY"),
			CrystalStorage:   v.GetFloat64("CRYSTAL_STORAGE_BASE_CAPACITY"),
			DeuteriumTank:    v.GetFloat64("DEUTERIUM_TANK_BASE_CAPACITY"),
		},
		StorageGrowth: v.GetFloat64("STORAGE_GROWTH"),

		BuildingSpecs:             defaultBuildingSpecs(),
		BuildingCostGrowthDefault: v.GetFloat64("BUILDING_COST_GROWTH"),
		HyperspaceBuildFactor:     v.GetFloat64("HYPERSPACE_BUILD_FACTOR"),
		RobotFactoryBuildFactor:   v.GetFloat64("ROBOT_FACTORY_BUILD_FACTOR"),
		MinBuildTimeFactor:        v.GetFloat64("MIN_BUILD_TIME_FACTOR"),
		DemolitionRefundRate:      v.GetFloat64("DEMOLITION_REFUND_RATE"),
		CancelBuildRefundRate:     v.GetFloat64("CANCEL_BUILD_REFUND_RATE"),

		ResearchSpecs:         defaultResearchSpecs(),
		ResearchLabFactor:     v.GetFloat64("RESEARCH_LAB_FACTOR"),
		MinResearchTimeFactor: v.GetFloat64("MIN_RESEARCH_TIME_FACTOR"),

		ShipSpecs:                 defaultShipSpecs(),
		ShipyardBuildFactor:       v.GetFloat64("SHIPYARD_BUILD_FACTOR"),
		ShipyardQueueBase:         v.GetInt("SHIPYARD_QUEUE_BASE"),
		ShipyardQueuePerLevel:     v.GetInt("SHIPYARD_QUEUE_PER_LEVEL"),
		BaseMaxFleetSize:          v.GetInt64("BASE_MAX_FLEET_SIZE"),
		FleetSizePerComputerLevel: v.GetInt64("FLEET_SIZE_PER_COMPUTER_LEVEL"),

		ColonizationTime: time.Duration(v.GetFloat64("COLONIZATION_TIME_SECONDS") * float64(time.Second)),

		TradeTransactionFeeRate:       v.GetFloat64("TRADE_TRANSACTION_FEE_RATE"),
		ExchangeRatioMetalCrystal:     v.GetFloat64("EXCHANGE_RATIO_METAL_CRYSTAL"),
		ExchangeRatioMetalDeuterium:   v.GetFloat64("EXCHANGE_RATIO_METAL_DEUTERIUM"),
		ExchangeRatioCrystalDeuterium: v.GetFloat64("EXCHANGE_RATIO_CRYSTAL_DEUTERIUM"),

		CleanupDays: v.GetInt("CLEANUP_DAYS"),

		JWTSecret:                v.GetString("JWT_SECRET"),
		JWTAlgorithm:             v.GetString("JWT_ALGORITHM"),
		AccessTokenExpireMinutes: v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES"),
		RateLimitPerMinute:       v.GetInt("RATE_LIMIT_PER_MINUTE"),

		MetricsAddr: v.GetString("METRICS_ADDR"),

		APIAddr:            v.GetString("API_ADDR"),
		CommandWaitTimeout: time.Duration(v.GetFloat64("COMMAND_WAIT_TIMEOUT_SECONDS") * float64(time.Second)),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("TICK_RATE", 1.0)
	v.SetDefault("SAVE_INTERVAL_SECONDS", 60.0)
	v.SetDefault("PERSIST_INTERVAL_SECONDS", 5.0)

	v.SetDefault("ENABLE_DB", false)
	v.SetDefault("DEV_CREATE_ALL", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("READ_REPLICA_URLS", []string{})
	v.SetDefault("DB_POOL_MAX_CONNS", 10)
	v.SetDefault("DB_POOL_MIN_CONNS", 2)

	v.SetDefault("GALAXY_COUNT", 9)
	v.SetDefault("SYSTEMS_PER_GALAXY", 499)
	v.SetDefault("POSITIONS_PER_SYSTEM", 15)
	v.SetDefault("INITIAL_PLANETS", 1)
	v.SetDefault("MAX_PLAYERS", 0)

	v.SetDefault("REQUIRE_START_CHOICE", false)
	v.SetDefault("STARTER_METAL", 500)
	v.SetDefault("STARTER_CRYSTAL", 500)
	v.SetDefault("STARTER_DEUTERIUM", 0)

	v.SetDefault("PLANET_SIZE_MIN", 100)
	v.SetDefault("PLANET_SIZE_MAX", 200)
	v.SetDefault("PLANET_TEMPERATURE_MIN", -20)
	v.SetDefault("PLANET_TEMPERATURE_MAX", 20)

	v.SetDefault("BASE_METAL_RATE", 60.0)
	v.SetDefault("BASE_CRYSTAL_RATE", 30.0)
	v.SetDefault("BASE_DEUTERIUM_RATE", 15.0)
	v.SetDefault("USE_CONFIG_PRODUCTION_RATES", true)
	v.SetDefault("RESOURCE_GROWTH", 1.1)

	v.SetDefault("ENERGY_CONSUMPTION_GROWTH", 1.0)
	v.SetDefault("ENERGY_BASE_CONSUMPTION_METAL_MINE", 3.0)
	v.SetDefault("ENERGY_BASE_CONSUMPTION_CRYSTAL_MINE", 2.0)
	v.SetDefault("ENERGY_BASE_CONSUMPTION_DEUTERIUM_SYNTHESIZER", 2.0)

	v.SetDefault("SOLAR_PLANT_BASE", 20.0)
	v.SetDefault("SOLAR_PLANT_GROWTH", 1.1)
	v.SetDefault("FUSION_REACTOR_BASE", 30.0)
	v.SetDefault("FUSION_REACTOR_GROWTH", 1.05)
	v.SetDefault("ENERGY_TECH_BONUS", 0.1)
	v.SetDefault("FUSION_DEUT_PER_LEVEL", 10.0)

	v.SetDefault("ENERGY_DEFICIT_SOFT_FLOOR", 0.1)
	v.SetDefault("ENERGY_DEFICIT_NOTIFY_THRESHOLD", 0.3)
	v.SetDefault("ENERGY_DEFICIT_NOTIFY_COOLDOWN", 30*time.Minute)

	v.SetDefault("PLASMA_BONUS_PER_LEVEL", 0.01)

	v.SetDefault("METAL_STORAGE_BASE_CAPACITY", 10000.0)
	v.SetDefault("CRYSTAL_STORAGE_BASE_CAPACITY", 10000.0)
	v.SetDefault("DEUTERIUM_TANK_BASE_CAPACITY", 10000.0)
	v.SetDefault("STORAGE_GROWTH", 1.5)

	v.SetDefault("BUILDING_COST_GROWTH", 1.5)
	v.SetDefault("HYPERSPACE_BUILD_FACTOR", 0.05)
	v.SetDefault("ROBOT_FACTORY_BUILD_FACTOR", 0.02)
	v.SetDefault("MIN_BUILD_TIME_FACTOR", 0.1)
	v.SetDefault("DEMOLITION_REFUND_RATE", 0.3)
	v.SetDefault("CANCEL_BUILD_REFUND_RATE", 0.5)

	v.SetDefault("RESEARCH_LAB_FACTOR", 0.02)
	v.SetDefault("MIN_RESEARCH_TIME_FACTOR", 0.1)

	v.SetDefault("SHIPYARD_BUILD_FACTOR", 1.0)
	v.SetDefault("SHIPYARD_QUEUE_BASE", 5)
	v.SetDefault("SHIPYARD_QUEUE_PER_LEVEL", 2)
	v.SetDefault("BASE_MAX_FLEET_SIZE", 50)
	v.SetDefault("FLEET_SIZE_PER_COMPUTER_LEVEL", 10)

	v.SetDefault("COLONIZATION_TIME_SECONDS", (2 * time.Hour).Seconds())

	v.SetDefault("TRADE_TRANSACTION_FEE_RATE", 0.05)
	v.SetDefault("EXCHANGE_RATIO_METAL_CRYSTAL", 2.0)
	v.SetDefault("EXCHANGE_RATIO_METAL_DEUTERIUM", 3.0)
	v.SetDefault("EXCHANGE_RATIO_CRYSTAL_DEUTERIUM", 1.5)

	v.SetDefault("CLEANUP_DAYS", 30)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)

	v.SetDefault("METRICS_ADDR", ":9090")

	v.SetDefault("API_ADDR", ":8080")
	v.SetDefault("COMMAND_WAIT_TIMEOUT_SECONDS", 2.0)
}
