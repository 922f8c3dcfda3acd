package systems

import (
	"testing"
	"time"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleChooseStartCreatesPlanetAtCoordinate(t *testing.T) {
	store, _, _, sys := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	result := make(chan sim.CommandResult, 1)

	sys.Handle(sim.Command{
		Kind:   sim.ChooseStart,
		UserID: "alice",
		Target: sim.Coordinate{Galaxy: 1, System: 2, Position: 3},
		Result: result,
	}, now)

	res := <-result
	require.NoError(t, res.Err)

	id, player, ok := store.FindPlayerByUserID("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", player.UserID)

	pos, ok := store.Position(id)
	require.True(t, ok)
	assert.Equal(t, 1, pos.Galaxy)
	assert.Equal(t, 2, pos.System)
	assert.Equal(t, 3, pos.Position)

	resources, ok := store.Resources(id)
	require.True(t, ok)
	assert.Equal(t, sys.cfg.StarterMetal, resources.Metal)
}

func TestHandleChooseStartRejectsAlreadyHavingAPlanet(t *testing.T) {
	store, _, _, sys := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newTestPlayer(t, store, "alice", components.Resources{})

	result := make(chan sim.CommandResult, 1)
	sys.Handle(sim.Command{
		Kind:   sim.ChooseStart,
		UserID: "alice",
		Target: sim.Coordinate{Galaxy: 1, System: 1, Position: 1},
		Result: result,
	}, now)

	res := <-result
	assert.Error(t, res.Err)
}

func TestHandleChooseStartRejectsOccupiedCoordinate(t *testing.T) {
	store, _, _, sys := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	result1 := make(chan sim.CommandResult, 1)
	sys.Handle(sim.Command{Kind: sim.ChooseStart, UserID: "alice", Target: sim.Coordinate{Galaxy: 1, System: 1, Position: 1}, Result: result1}, now)
	require.NoError(t, (<-result1).Err)

	result2 := make(chan sim.CommandResult, 1)
	sys.Handle(sim.Command{Kind: sim.ChooseStart, UserID: "bob", Target: sim.Coordinate{Galaxy: 1, System: 1, Position: 1}, Result: result2}, now)
	res2 := <-result2
	assert.Error(t, res2.Err)

	_ = store
}
