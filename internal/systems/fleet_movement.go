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

// FleetMovement implements spec §4.8: finalize movements on arrival,
// handling the two-phase `colonize` mission and `espionage`'s snapshot
// report. Grounded on
// original_source/src/systems/fleet_movement.py, generalized from its
// try/except-everywhere defensive style to explicit Go error returns and
// early-continue loops.
type FleetMovement struct {
	store *ecs.Store
	cfg   config.Config
	sink  *events.Sink
	log   logger.Logger

	espionageReporter EspionageReporter
}

// EspionageReporter receives every espionage snapshot as it is taken,
// for the persistence bridge to insert into espionage_reports (§4.12)
// without this package needing to import the bridge itself.
type EspionageReporter func(attackerID, defenderID string, location components.Coordinate, snapshot map[string]any, now time.Time)

func NewFleetMovement(store *ecs.Store, cfg config.Config, sink *events.Sink, log logger.Logger) *FleetMovement {
	return &FleetMovement{store: store, cfg: cfg, sink: sink, log: log}
}

// WithEspionageReporter attaches an EspionageReporter. Returns the fleet
// movement system to allow chain calling.
func (f *FleetMovement) WithEspionageReporter(reporter EspionageReporter) *FleetMovement {
	f.espionageReporter = reporter
	return f
}

func (f *FleetMovement) Name() string { return "fleet_movement" }

func (f *FleetMovement) Run(now time.Time) {
	var due []ecs.EntityID
	f.store.FleetMovements(func(id ecs.EntityID, fleet components.Fleet, mv components.FleetMovement) {
		if !now.Before(mv.ArrivalTime) {
			due = append(due, id)
		}
	})

	for _, id := range due {
		mv, ok := f.store.FleetMovement(id)
		if !ok {
			continue
		}
		fleet, _ := f.store.Fleet(id)

		if mv.Mission == components.MissionColonize && !mv.Recalled {
			f.processColonize(id, fleet, mv, now)
			continue
		}

		f.processArrival(id, fleet, mv, now)
	}
}

func (f *FleetMovement) processColonize(id ecs.EntityID, fleet components.Fleet, mv components.FleetMovement, now time.Time) {
	if mv.ColonizingUntil.IsZero() {
		if fleet.Count(config.ColonyShip) <= 0 {
			f.store.RemoveFleetMovement(id)
			f.log.Trace(logger.Info, "fleet_movement", "colonize aborted: no colony ship")
			return
		}

		mv.ColonizingUntil = mv.ArrivalTime.Add(f.cfg.ColonizationTime)
		mv.ArrivalTime = mv.ColonizingUntil
		f.store.SetFleetMovement(id, mv)

		if now.Before(mv.ColonizingUntil) {
			return
		}
	}

	f.finalizeColonize(id, fleet, mv)
}

func (f *FleetMovement) finalizeColonize(id ecs.EntityID, fleet components.Fleet, mv components.FleetMovement) {
	target := components.Coordinate{Galaxy: mv.Target.Galaxy, System: mv.Target.System, Position: mv.Target.Position}

	_, occupied := f.store.FindPlanetByCoordinate(target)
	if !occupied {
		f.store.SetPosition(id, components.Position{Galaxy: target.Galaxy, System: target.System, Position: target.Position})
		if fleet.Counts != nil {
			if fleet.Counts[config.ColonyShip] > 0 {
				fleet.Counts[config.ColonyShip]--
			}
			f.store.SetFleet(id, fleet)
		}
	}

	f.store.RemoveFleetMovement(id)
	f.log.Trace(logger.Info, "fleet_movement", "colonize complete")
}

func (f *FleetMovement) processArrival(id ecs.EntityID, fleet components.Fleet, mv components.FleetMovement, now time.Time) {
	f.store.SetPosition(id, components.Position{
		Galaxy: mv.Target.Galaxy, System: mv.Target.System, Position: mv.Target.Position,
	})

	switch mv.Mission {
	case components.MissionEspionage:
		f.emitEspionageReport(mv, now)
	case components.MissionAttack:
		f.createBattle(mv, now)
	}

	f.store.RemoveFleetMovement(id)
}

// createBattle implements the §4.1 lifecycle note that a Battle is
// "created externally (e.g., on attack arrival)": the defender is
// whichever other player occupies the target coordinate, with whatever
// fleet they have stationed there.
func (f *FleetMovement) createBattle(mv components.FleetMovement, now time.Time) {
	target := mv.Target

	var defenderID string
	var defenderShips map[config.ShipType]int64
	for pid, player := range f.store.AllPlayers() {
		if player.UserID == mv.OwnerID {
			continue
		}
		pos, ok := f.store.Position(pid)
		if !ok || pos.Galaxy != target.Galaxy || pos.System != target.System || pos.Position != target.Position {
			continue
		}
		defenderID = player.UserID
		if fl, ok := f.store.Fleet(pid); ok {
			defenderShips = fl.Counts
		}
		break
	}

	if defenderID == "" {
		return
	}

	battleID := f.store.CreateEntity()
	f.store.SetBattle(battleID, components.Battle{
		AttackerID:    mv.OwnerID,
		DefenderID:    defenderID,
		Location:      target,
		ScheduledTime: now,
		AttackerShips: mv.Ships,
		DefenderShips: defenderShips,
	})
}

func (f *FleetMovement) emitEspionageReport(mv components.FleetMovement, now time.Time) {
	target := mv.Target

	var defenderUserID string
	var snapshot map[string]any

	for pid, player := range f.store.AllPlayers() {
		if player.UserID == mv.OwnerID {
			continue
		}
		pos, ok := f.store.Position(pid)
		if !ok || pos.Galaxy != target.Galaxy || pos.System != target.System || pos.Position != target.Position {
			continue
		}

		defenderUserID = player.UserID
		res, _ := f.store.Resources(pid)
		bld, _ := f.store.Buildings(pid)
		fl, _ := f.store.Fleet(pid)
		planet, _ := f.store.Planet(pid)

		snapshot = map[string]any{
			"planet":    planet,
			"resources": res,
			"buildings": bld,
			"fleet":     fl,
		}
		break
	}

	if defenderUserID == "" {
		return
	}

	f.sink.Send(mv.OwnerID, events.Message{
		Type: "espionage_report",
		Payload: map[string]any{
			"defender_user_id": defenderUserID,
			"location":         target,
			"snapshot":         snapshot,
			"ts":               now.Format(time.RFC3339),
		},
	})

	if f.espionageReporter != nil {
		f.espionageReporter(mv.OwnerID, defenderUserID, target, snapshot, now)
	}
}

// TravelSeconds implements spec §4.8's distance/speed/duration formula.
func TravelSeconds(cfg config.Config, origin, target components.Coordinate, speed float64, userFactor float64) int64 {
	dist := math.Abs(float64(target.Galaxy-origin.Galaxy))*float64(cfg.SystemsPerGalaxy)*float64(cfg.PositionsPerSystem) +
		math.Abs(float64(target.System-origin.System))*float64(cfg.PositionsPerSystem) +
		math.Abs(float64(target.Position-origin.Position))

	if userFactor <= 0 || userFactor > 1 {
		userFactor = 1
	}
	effectiveSpeed := speed * userFactor
	if effectiveSpeed <= 0 {
		effectiveSpeed = 1
	}

	seconds := math.Round(dist / effectiveSpeed * 3600)
	if seconds < 1 {
		seconds = 1
	}
	return int64(seconds)
}

// SlowestShipSpeed returns the minimum ship speed across composition,
// falling back to the fastest ship present in owned (the dispatching
// entity's full stationed fleet before this dispatch), then to the
// light fighter base speed, per spec §4.8.
func SlowestShipSpeed(cfg config.Config, composition, owned map[config.ShipType]int64) float64 {
	if speed, ok := minSpeed(cfg, composition); ok {
		return speed
	}
	if speed, ok := maxSpeed(cfg, owned); ok {
		return speed
	}
	return cfg.ShipSpecs[config.LightFighter].Speed
}

func minSpeed(cfg config.Config, counts map[config.ShipType]int64) (float64, bool) {
	var slowest float64
	found := false
	for t, count := range counts {
		if count <= 0 {
			continue
		}
		spec, ok := cfg.ShipSpecs[t]
		if !ok {
			continue
		}
		if !found || spec.Speed < slowest {
			slowest = spec.Speed
			found = true
		}
	}
	return slowest, found
}

func maxSpeed(cfg config.Config, counts map[config.ShipType]int64) (float64, bool) {
	var fastest float64
	found := false
	for t, count := range counts {
		if count <= 0 {
			continue
		}
		spec, ok := cfg.ShipSpecs[t]
		if !ok {
			continue
		}
		if !found || spec.Speed > fastest {
			fastest = spec.Speed
			found = true
		}
	}
	return fastest, found
}

// Recall implements spec §4.8's recall semantics: idempotent once
// already recalled, rejected if already arrived.
func Recall(mv components.FleetMovement, now time.Time) (components.FleetMovement, error) {
	if mv.Recalled {
		return mv, nil
	}
	if !now.Before(mv.ArrivalTime) {
		return mv, ErrAlreadyArrived
	}

	elapsed := now.Sub(mv.DepartureTime)
	mv.Target, mv.Origin = mv.Origin, mv.Target
	mv.Recalled = true
	mv.DepartureTime = now
	mv.ArrivalTime = now.Add(elapsed)
	return mv, nil
}
