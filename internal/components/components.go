// Package components defines the component shapes attached to entities in
// the simulation's entity store (spec §3 "Data Model"). Each type here is
// a plain data struct; all behavior lives in internal/systems.
package components

import (
	"time"

	"github.com/stellarforge/coreserver/pkg/config"
)

// Player :
// One per live player avatar (spec §3). Destroyed by the inactivity
// cleanup job once `LastActive` is older than `CLEANUP_DAYS`.
type Player struct {
	Name       string
	UserID     string
	LastActive time.Time
}

// Position :
// Current active-planet coordinates for a player entity.
type Position struct {
	Galaxy   int
	System   int
	Position int
}

// Resources :
// Non-negative resource balances, always clamped to storage capacity by
// the production system (§4.4 step 8).
type Resources struct {
	Metal     int64
	Crystal   int64
	Deuterium int64
}

// ResourceProduction :
// Base per-hour rates the production system (§4.4) multiplies by the
// building-level growth curve, plus the UTC timestamp accrual resumes
// from. Normally seeded from the `BASE_*_RATE` config defaults when a
// planet is created; kept per-entity (rather than read straight from
// config) so a future event or trait system can vary a single planet's
// rate without touching every other entity.
type ResourceProduction struct {
	MetalRate     float64
	CrystalRate   float64
	DeuteriumRate float64
	LastUpdate    time.Time
}

// Buildings :
// Level per building type (spec §3). Zero value for a type not present
// in the map means level 0 (not yet built).
type Buildings struct {
	Levels map[config.BuildingType]int
}

// Level returns the building's level, or 0 if absent.
func (b Buildings) Level(t config.BuildingType) int {
	if b.Levels == nil {
		return 0
	}
	return b.Levels[t]
}

// BuildItem is a single entry of a BuildQueue.
type BuildItem struct {
	Type               config.BuildingType
	CompletionTime     time.Time
	Cost               config.Cost
	QueuedAt           time.Time
	ExpectedDurationS  float64
}

// BuildQueue :
// Ordered list of pending building upgrades; the construction system
// (§4.5) only ever inspects the head.
type BuildQueue struct {
	Items []BuildItem
}

// ShipBuildItem is a single entry of a ShipBuildQueue.
type ShipBuildItem struct {
	Type           config.ShipType
	Count          int64
	CompletionTime time.Time
	Cost           config.Cost
	QueuedAt       time.Time
}

// ShipBuildQueue :
// Ordered list of pending ship production batches (§4.7).
type ShipBuildQueue struct {
	Items []ShipBuildItem
}

// Fleet :
// Ship counts stationed on the owning entity's current planet.
type Fleet struct {
	Counts map[config.ShipType]int64
}

// Count returns the ship count for a type, or 0 if absent.
func (f Fleet) Count(t config.ShipType) int64 {
	if f.Counts == nil {
		return 0
	}
	return f.Counts[t]
}

// Total returns the sum of all ship counts.
func (f Fleet) Total() int64 {
	var total int64
	for _, c := range f.Counts {
		total += c
	}
	return total
}

// Mission identifies the purpose of a FleetMovement.
type Mission string

const (
	MissionAttack    Mission = "attack"
	MissionTransport Mission = "transport"
	MissionColonize  Mission = "colonize"
	MissionRecall    Mission = "recall"
	MissionEspionage Mission = "espionage"
)

// Coordinate identifies a planet slot within the galaxy/system/position
// topology (spec §6.4 universe topology options).
type Coordinate struct {
	Galaxy   int
	System   int
	Position int
}

// FleetMovement :
// At most one attached per entity (invariant 4). `Recalled` distinguishes
// an in-flight recall from a fresh outbound movement; `ColonizingUntil`
// is set only for a `colonize` mission once it has landed but is still
// waiting out the colonization grace window.
type FleetMovement struct {
	Origin          Coordinate
	Target          Coordinate
	DepartureTime   time.Time
	ArrivalTime     time.Time
	Speed           float64
	Mission         Mission
	OwnerID         string
	Ships           map[config.ShipType]int64
	Recalled        bool
	ColonizingUntil time.Time
}

// Research :
// Level per technology (spec §3, §4.6).
type Research struct {
	Levels map[config.ResearchType]int
}

// Level returns the technology's level, or 0 if absent.
func (r Research) Level(t config.ResearchType) int {
	if r.Levels == nil {
		return 0
	}
	return r.Levels[t]
}

// ResearchItem is a single entry of a ResearchQueue.
type ResearchItem struct {
	Type              config.ResearchType
	CompletionTime    time.Time
	Cost              config.Cost
	QueuedAt          time.Time
	ExpectedDurationS float64
}

// ResearchQueue :
// Ordered list of pending technology upgrades (§4.6). Unlike BuildQueue,
// research is per-player rather than per-planet so only the head item
// across a player's whole empire is ever active at once.
type ResearchQueue struct {
	Items []ResearchItem
}

// Planet :
// Static per-planet facts that do not change tick to tick outside of
// ownership transfer (colonization) or destruction.
type Planet struct {
	Name        string
	OwnerID     string
	Temperature int
	Size        int
}

// Battle :
// A scheduled or resolved combat engagement (§4.9). `Resolved` flips to
// true once the battle system has produced an `Outcome`; the entity is
// then eligible for cleanup by the caller that created it.
type Battle struct {
	AttackerID     string
	DefenderID     string
	Location       Coordinate
	ScheduledTime  time.Time
	AttackerShips  map[config.ShipType]int64
	DefenderShips  map[config.ShipType]int64
	Resolved       bool
	Outcome        *BattleOutcome
}

// BattleWinner enumerates the three possible outcomes of §4.9's
// remaining-power comparison.
type BattleWinner string

const (
	WinnerAttacker BattleWinner = "attacker"
	WinnerDefender BattleWinner = "defender"
	WinnerDraw     BattleWinner = "draw"
)

// BattleOutcome captures the resolved result of a Battle for reporting
// and event fan-out (§4.9, §4.14): `{winner, powers, losses, remaining,
// location, resolved_at}`.
type BattleOutcome struct {
	Winner                 BattleWinner
	AttackerPower          float64
	DefenderPower          float64
	AttackerRemainingPower float64
	DefenderRemainingPower float64
	AttackerLosses         map[config.ShipType]int64
	DefenderLosses         map[config.ShipType]int64
	AttackerRemaining      map[config.ShipType]int64
	DefenderRemaining      map[config.ShipType]int64
	Location               Coordinate
	ResolvedAt             time.Time
}

// TradeOfferStatus enumerates the marketplace offer lifecycle (spec §3
// lifecycles, §4.10).
type TradeOfferStatus string

const (
	TradeOfferOpen      TradeOfferStatus = "open"
	TradeOfferAccepted  TradeOfferStatus = "accepted"
	TradeOfferCancelled TradeOfferStatus = "cancelled"
)

// TradeOffer :
// A marketplace listing. `Offered` is escrowed out of the seller's
// Resources the instant the offer opens (invariant 8); it is returned to
// the seller on cancellation or transferred to the buyer on acceptance.
type TradeOffer struct {
	ID          string
	SellerID    string
	Offered     config.Cost
	RequestedRes config.ResourceKind
	RequestedQty int64
	Status      TradeOfferStatus
	CreatedAt   time.Time
	AcceptedBy  string
	ResolvedAt  time.Time
}
