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

func newTestFleetMovement(t *testing.T) (*ecs.Store, config.Config, *FleetMovement) {
	t.Helper()
	cfg := config.Load()
	store := ecs.New()
	log := logger.NewStdLogger("test", "localhost")
	t.Cleanup(log.Release)
	sink := events.New(log)
	return store, cfg, NewFleetMovement(store, cfg, sink, log)
}

func TestFleetMovementUpdatesPositionOnArrival(t *testing.T) {
	store, _, sys := newTestFleetMovement(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{config.LightFighter: 3}})
	store.SetFleetMovement(id, components.FleetMovement{
		Origin:        components.Coordinate{Galaxy: 1, System: 1, Position: 1},
		Target:        components.Coordinate{Galaxy: 1, System: 1, Position: 5},
		DepartureTime: now.Add(-time.Hour),
		ArrivalTime:   now.Add(-time.Second),
		Mission:       components.MissionTransport,
		OwnerID:       "user-a",
	})

	sys.Run(now)

	pos, ok := store.Position(id)
	require.True(t, ok)
	assert.Equal(t, components.Position{Galaxy: 1, System: 1, Position: 5}, pos)

	_, stillMoving := store.FleetMovement(id)
	assert.False(t, stillMoving)
}

func TestFleetMovementLeavesFutureArrivalUntouched(t *testing.T) {
	store, _, sys := newTestFleetMovement(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetFleet(id, components.Fleet{})
	store.SetFleetMovement(id, components.FleetMovement{
		Target:        components.Coordinate{Galaxy: 1, System: 1, Position: 5},
		ArrivalTime:   now.Add(time.Hour),
		Mission:       components.MissionTransport,
		OwnerID:       "user-a",
	})

	sys.Run(now)

	_, stillMoving := store.FleetMovement(id)
	assert.True(t, stillMoving)
}

func TestFleetMovementColonizeAbortsWithoutColonyShip(t *testing.T) {
	store, _, sys := newTestFleetMovement(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{config.LightFighter: 1}})
	store.SetFleetMovement(id, components.FleetMovement{
		Target:      components.Coordinate{Galaxy: 1, System: 1, Position: 9},
		ArrivalTime: now.Add(-time.Second),
		Mission:     components.MissionColonize,
		OwnerID:     "user-a",
	})

	sys.Run(now)

	_, stillMoving := store.FleetMovement(id)
	assert.False(t, stillMoving)
	_, hasPosition := store.Position(id)
	assert.False(t, hasPosition)
}

func TestFleetMovementColonizeWaitsOutGracePeriod(t *testing.T) {
	store, _, sys := newTestFleetMovement(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{config.ColonyShip: 1}})
	store.SetFleetMovement(id, components.FleetMovement{
		Target:      components.Coordinate{Galaxy: 1, System: 1, Position: 9},
		ArrivalTime: now.Add(-time.Second),
		Mission:     components.MissionColonize,
		OwnerID:     "user-a",
	})

	sys.Run(now)

	mv, ok := store.FleetMovement(id)
	require.True(t, ok, "movement stays attached through the colonization grace window")
	require.False(t, mv.ColonizingUntil.IsZero())

	sys.Run(mv.ColonizingUntil.Add(-time.Second))

	mv2, ok := store.FleetMovement(id)
	require.True(t, ok, "still waiting until ColonizingUntil is reached")
	assert.False(t, mv2.ColonizingUntil.IsZero())

	sys.Run(mv.ColonizingUntil.Add(time.Second))

	_, stillMoving := store.FleetMovement(id)
	assert.False(t, stillMoving)

	fleet, _ := store.Fleet(id)
	assert.Equal(t, int64(0), fleet.Count(config.ColonyShip))

	pos, ok := store.Position(id)
	require.True(t, ok)
	assert.Equal(t, components.Position{Galaxy: 1, System: 1, Position: 9}, pos)
}

func TestFleetMovementColonizeSkipsOccupiedCoordinate(t *testing.T) {
	store, _, sys := newTestFleetMovement(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	occupant := store.CreateEntity()
	store.SetPosition(occupant, components.Position{Galaxy: 1, System: 1, Position: 9})

	id := store.CreateEntity()
	store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{config.ColonyShip: 1}})
	store.SetFleetMovement(id, components.FleetMovement{
		Target:          components.Coordinate{Galaxy: 1, System: 1, Position: 9},
		ArrivalTime:     now.Add(-time.Hour),
		ColonizingUntil: now.Add(-time.Second),
		Mission:         components.MissionColonize,
		OwnerID:         "user-a",
	})

	sys.Run(now)

	_, hasPosition := store.Position(id)
	assert.False(t, hasPosition)
	fleet, _ := store.Fleet(id)
	assert.Equal(t, int64(1), fleet.Count(config.ColonyShip))
}

func TestFleetMovementAttackArrivalCreatesBattle(t *testing.T) {
	store, _, sys := newTestFleetMovement(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	defender := store.CreateEntity()
	store.SetPlayer(defender, components.Player{UserID: "defender"})
	store.SetPosition(defender, components.Position{Galaxy: 1, System: 1, Position: 9})
	store.SetFleet(defender, components.Fleet{Counts: map[config.ShipType]int64{config.LightFighter: 1}})

	attacker := store.CreateEntity()
	store.SetPlayer(attacker, components.Player{UserID: "attacker"})
	store.SetFleet(attacker, components.Fleet{Counts: map[config.ShipType]int64{config.LightFighter: 2}})
	store.SetFleetMovement(attacker, components.FleetMovement{
		Target:      components.Coordinate{Galaxy: 1, System: 1, Position: 9},
		ArrivalTime: now.Add(-time.Second),
		Mission:     components.MissionAttack,
		OwnerID:     "attacker",
		Ships:       map[config.ShipType]int64{config.LightFighter: 2},
	})

	sys.Run(now)

	var found bool
	var battleCount int
	store.PendingBattles(func(id ecs.EntityID, b components.Battle) {
		battleCount++
		assert.Equal(t, "attacker", b.AttackerID)
		assert.Equal(t, "defender", b.DefenderID)
		assert.Equal(t, map[config.ShipType]int64{config.LightFighter: 2}, b.AttackerShips)
		assert.Equal(t, map[config.ShipType]int64{config.LightFighter: 1}, b.DefenderShips)
		found = true
	})
	assert.True(t, found)
	assert.Equal(t, 1, battleCount)
}

func TestTravelSecondsScalesWithDistanceAndSpeed(t *testing.T) {
	cfg := config.Load()
	origin := components.Coordinate{Galaxy: 1, System: 1, Position: 1}
	target := components.Coordinate{Galaxy: 1, System: 1, Position: 1}

	assert.Equal(t, int64(1), TravelSeconds(cfg, origin, target, 10000, 1))

	target = components.Coordinate{Galaxy: 1, System: 2, Position: 1}
	seconds := TravelSeconds(cfg, origin, target, 10000, 1)
	assert.Greater(t, seconds, int64(0))
}

func TestTravelSecondsClampsOutOfRangeUserFactor(t *testing.T) {
	cfg := config.Load()
	origin := components.Coordinate{Galaxy: 1, System: 1, Position: 1}
	target := components.Coordinate{Galaxy: 1, System: 5, Position: 1}

	withDefault := TravelSeconds(cfg, origin, target, 10000, 1)
	withOverrange := TravelSeconds(cfg, origin, target, 10000, 2)
	withNegative := TravelSeconds(cfg, origin, target, 10000, -1)

	assert.Equal(t, withDefault, withOverrange)
	assert.Equal(t, withDefault, withNegative)
}

func TestSlowestShipSpeedPicksMinimumOverComposition(t *testing.T) {
	cfg := config.Load()
	composition := map[config.ShipType]int64{
		config.LightFighter: 1,
		config.Battleship:   1,
	}
	speed := SlowestShipSpeed(cfg, composition, nil)
	assert.Equal(t, cfg.ShipSpecs[config.Battleship].Speed, speed)
}

func TestSlowestShipSpeedFallsBackToFastestOwnedShip(t *testing.T) {
	cfg := config.Load()
	owned := map[config.ShipType]int64{
		config.LightFighter: 2,
		config.Battleship:   1,
	}
	speed := SlowestShipSpeed(cfg, map[config.ShipType]int64{}, owned)
	assert.Equal(t, cfg.ShipSpecs[config.LightFighter].Speed, speed)
}

func TestSlowestShipSpeedFallsBackToLightFighterWhenNothingOwned(t *testing.T) {
	cfg := config.Load()
	speed := SlowestShipSpeed(cfg, nil, nil)
	assert.Equal(t, cfg.ShipSpecs[config.LightFighter].Speed, speed)
}

func TestRecallFlipsOriginAndTargetPreservingDuration(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mv := components.FleetMovement{
		Origin:        components.Coordinate{Galaxy: 1, System: 1, Position: 1},
		Target:        components.Coordinate{Galaxy: 1, System: 1, Position: 9},
		DepartureTime: now.Add(-30 * time.Minute),
		ArrivalTime:   now.Add(30 * time.Minute),
	}

	recalled, err := Recall(mv, now)
	require.NoError(t, err)
	assert.True(t, recalled.Recalled)
	assert.Equal(t, mv.Origin, recalled.Target)
	assert.Equal(t, mv.Target, recalled.Origin)
	assert.Equal(t, now.Add(30*time.Minute), recalled.ArrivalTime)
}

func TestRecallIsIdempotent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mv := components.FleetMovement{Recalled: true, ArrivalTime: now.Add(time.Hour)}

	recalled, err := Recall(mv, now)
	require.NoError(t, err)
	assert.Equal(t, mv, recalled)
}

func TestRecallRejectsAlreadyArrived(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mv := components.FleetMovement{ArrivalTime: now.Add(-time.Second)}

	_, err := Recall(mv, now)
	assert.ErrorIs(t, err, ErrAlreadyArrived)
}

func TestEspionageReporterFiresOnArrival(t *testing.T) {
	store, _, sys := newTestFleetMovement(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var reportedAttacker, reportedDefender string
	sys.WithEspionageReporter(func(attackerID, defenderID string, location components.Coordinate, snapshot map[string]any, at time.Time) {
		reportedAttacker = attackerID
		reportedDefender = defenderID
	})

	defender := store.CreateEntity()
	store.SetPlayer(defender, components.Player{UserID: "defender"})
	store.SetPosition(defender, components.Position{Galaxy: 1, System: 1, Position: 9})
	store.SetResources(defender, components.Resources{Metal: 100})
	store.SetPlanet(defender, components.Planet{Name: "home"})

	attacker := store.CreateEntity()
	store.SetPlayer(attacker, components.Player{UserID: "attacker"})
	store.SetFleetMovement(attacker, components.FleetMovement{
		Target:      components.Coordinate{Galaxy: 1, System: 1, Position: 9},
		ArrivalTime: now.Add(-time.Second),
		Mission:     components.MissionEspionage,
		OwnerID:     "attacker",
	})

	sys.Run(now)

	assert.Equal(t, "attacker", reportedAttacker)
	assert.Equal(t, "defender", reportedDefender)
}
