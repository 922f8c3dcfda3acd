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

func newTestBattle(t *testing.T) (*ecs.Store, *Battle) {
	t.Helper()
	cfg := config.Load()
	store := ecs.New()
	log := logger.NewStdLogger("test", "localhost")
	t.Cleanup(log.Release)
	sink := events.New(log)
	return store, NewBattle(store, cfg, sink, log)
}

// Spec §8 example 6: 2 vs 1 light fighters, attacker wins with the exact
// stated powers.
func TestBattleResolvesDeterministicOutcome(t *testing.T) {
	store, sys := newTestBattle(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetBattle(id, components.Battle{
		AttackerID:    "attacker",
		DefenderID:    "defender",
		ScheduledTime: now.Add(-time.Second),
		AttackerShips: map[config.ShipType]int64{config.LightFighter: 2},
		DefenderShips: map[config.ShipType]int64{config.LightFighter: 1},
	})

	sys.Run(now)

	battle, ok := store.Battle(id)
	require.True(t, ok)
	require.True(t, battle.Resolved)
	require.NotNil(t, battle.Outcome)
	assert.Equal(t, components.WinnerAttacker, battle.Outcome.Winner)
	assert.Equal(t, float64(100), battle.Outcome.AttackerPower)
	assert.Equal(t, float64(50), battle.Outcome.DefenderPower)
}

// Spec §8 example 6: symmetric {1} vs {1} is a draw with equal powers.
func TestBattleSymmetricForcesIsADraw(t *testing.T) {
	store, sys := newTestBattle(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetBattle(id, components.Battle{
		AttackerID:    "attacker",
		DefenderID:    "defender",
		ScheduledTime: now.Add(-time.Second),
		AttackerShips: map[config.ShipType]int64{config.LightFighter: 1},
		DefenderShips: map[config.ShipType]int64{config.LightFighter: 1},
	})

	sys.Run(now)

	battle, _ := store.Battle(id)
	require.NotNil(t, battle.Outcome)
	assert.Equal(t, components.WinnerDraw, battle.Outcome.Winner)
	assert.Equal(t, battle.Outcome.AttackerPower, battle.Outcome.DefenderPower)
}

func TestBattleSkipsNotYetDue(t *testing.T) {
	store, sys := newTestBattle(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	store.SetBattle(id, components.Battle{
		AttackerID:    "attacker",
		DefenderID:    "defender",
		ScheduledTime: now.Add(time.Hour),
		AttackerShips: map[config.ShipType]int64{config.LightFighter: 1},
	})

	sys.Run(now)

	battle, _ := store.Battle(id)
	assert.False(t, battle.Resolved)
	assert.Nil(t, battle.Outcome)
}

func TestBattleSkipsAlreadyResolved(t *testing.T) {
	store, sys := newTestBattle(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	id := store.CreateEntity()
	existing := &components.BattleOutcome{Winner: components.WinnerDraw}
	store.SetBattle(id, components.Battle{
		ScheduledTime: now.Add(-time.Hour),
		Resolved:      true,
		Outcome:       existing,
	})

	sys.Run(now)

	battle, _ := store.Battle(id)
	assert.Same(t, existing, battle.Outcome)
}

func TestLossFractionClampsToUnitInterval(t *testing.T) {
	assert.Equal(t, 0.0, lossFraction(100, 0))
	assert.Equal(t, 1.0, lossFraction(1000, 100))
	assert.InDelta(t, 0.5, lossFraction(50, 100), 0.0001)
}

func TestApplyLossesFloorsDestroyedCount(t *testing.T) {
	losses, remaining := applyLosses(map[config.ShipType]int64{config.LightFighter: 3}, 0.5)
	assert.Equal(t, int64(1), losses[config.LightFighter])
	assert.Equal(t, int64(2), remaining[config.LightFighter])
}

func TestBattleReporterFiresOnResolve(t *testing.T) {
	store, sys := newTestBattle(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var reported components.Battle
	sys.WithReporter(func(b components.Battle) { reported = b })

	id := store.CreateEntity()
	store.SetBattle(id, components.Battle{
		AttackerID:    "attacker",
		DefenderID:    "defender",
		ScheduledTime: now.Add(-time.Second),
		AttackerShips: map[config.ShipType]int64{config.LightFighter: 2},
		DefenderShips: map[config.ShipType]int64{config.LightFighter: 1},
	})

	sys.Run(now)

	require.NotNil(t, reported.Outcome)
	assert.Equal(t, "attacker", reported.AttackerID)
}
