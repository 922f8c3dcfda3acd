package systems

import (
	"testing"
	"time"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/internal/events"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/pkg/config"
	"github.com/stellarforge/coreserver/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommands(t *testing.T) (*ecs.Store, config.Config, *events.Sink, *Commands) {
	t.Helper()
	cfg := config.Load()
	store := ecs.New()
	log := logger.NewStdLogger("test", "localhost")
	t.Cleanup(log.Release)
	sink := events.New(log)
	ids := sim.NewIDAllocator()
	return store, cfg, sink, NewCommands(store, cfg, sink, log, ids)
}

func newTestPlayer(t *testing.T, store *ecs.Store, userID string, res components.Resources) ecs.EntityID {
	t.Helper()
	id := store.CreateEntity()
	store.SetPlayer(id, components.Player{UserID: userID})
	store.SetResources(id, res)
	return id
}

func TestHandleBuildBuildingRejectsUnmetPrerequisite(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{Metal: 1_000_000, Crystal: 1_000_000, Deuterium: 1_000_000})

	cmds.Handle(sim.Command{Kind: sim.BuildBuilding, UserID: "user-a", BuildingType: config.Shipyard}, now)

	q, _ := store.BuildQueue(id)
	assert.Empty(t, q.Items)
}

func TestHandleBuildBuildingQueuesAndDeductsCost(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{Metal: 1_000_000, Crystal: 1_000_000, Deuterium: 1_000_000})

	cmds.Handle(sim.Command{Kind: sim.BuildBuilding, UserID: "user-a", BuildingType: config.MetalMine}, now)

	q, ok := store.BuildQueue(id)
	require.True(t, ok)
	require.Len(t, q.Items, 1)
	assert.Equal(t, config.MetalMine, q.Items[0].Type)

	res, _ := store.Resources(id)
	assert.Equal(t, int64(1_000_000-60), res.Metal)
	assert.Equal(t, int64(1_000_000-15), res.Crystal)
}

func TestHandleBuildBuildingRejectsInsufficientResources(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{})

	cmds.Handle(sim.Command{Kind: sim.BuildBuilding, UserID: "user-a", BuildingType: config.MetalMine}, now)

	q, _ := store.BuildQueue(id)
	assert.Empty(t, q.Items)
}

func TestHandleDemolishBuildingRejectsBrokenPrerequisite(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	id := newTestPlayer(t, store, "user-a", components.Resources{})
	store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{
		config.RobotFactory: 2,
		config.Shipyard:     1,
	}})

	cmds.Handle(sim.Command{Kind: sim.DemolishBuilding, UserID: "user-a", BuildingType: config.RobotFactory}, time.Time{})

	bld, _ := store.Buildings(id)
	assert.Equal(t, 2, bld.Level(config.RobotFactory))
}

func TestHandleDemolishBuildingRefundsAndLowersLevel(t *testing.T) {
	store, cfg, _, cmds := newTestCommands(t)
	id := newTestPlayer(t, store, "user-a", components.Resources{})
	store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{config.MetalMine: 3}})

	cmds.Handle(sim.Command{Kind: sim.DemolishBuilding, UserID: "user-a", BuildingType: config.MetalMine}, time.Time{})

	bld, _ := store.Buildings(id)
	assert.Equal(t, 2, bld.Level(config.MetalMine))

	spec := cfg.BuildingSpecs[config.MetalMine]
	expected := scaleCost(BuildingCostAtLevel(spec.BaseCost, spec.CostGrowth, 2), cfg.DemolitionRefundRate)
	res, _ := store.Resources(id)
	assert.Equal(t, expected.Metal, res.Metal)
	assert.Equal(t, expected.Crystal, res.Crystal)
}

func TestHandleCancelBuildQueueRejectsOutOfRangeIndex(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	newTestPlayer(t, store, "user-a", components.Resources{})

	cmds.Handle(sim.Command{Kind: sim.CancelBuildQueue, UserID: "user-a", QueueIndex: 0}, time.Time{})
}

func TestHandleCancelBuildQueueRefundsAndRemovesItem(t *testing.T) {
	store, cfg, _, cmds := newTestCommands(t)
	id := newTestPlayer(t, store, "user-a", components.Resources{})
	cost := config.Cost{Metal: 100, Crystal: 50}
	store.SetBuildQueue(id, components.BuildQueue{Items: []components.BuildItem{
		{Type: config.MetalMine, Cost: cost},
		{Type: config.CrystalMine, Cost: config.Cost{Metal: 10}},
	}})

	cmds.Handle(sim.Command{Kind: sim.CancelBuildQueue, UserID: "user-a", QueueIndex: 0}, time.Time{})

	q, _ := store.BuildQueue(id)
	require.Len(t, q.Items, 1)
	assert.Equal(t, config.CrystalMine, q.Items[0].Type)

	res, _ := store.Resources(id)
	expected := scaleCost(cost, cfg.CancelBuildRefundRate)
	assert.Equal(t, expected.Metal, res.Metal)
	assert.Equal(t, expected.Crystal, res.Crystal)
}

func TestHandleUpdatePlayerActivitySetsLastActive(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{})

	cmds.Handle(sim.Command{Kind: sim.UpdatePlayerActivity, UserID: "user-a"}, now)

	player, _ := store.Player(id)
	assert.True(t, player.LastActive.Equal(now))
}

func TestHandleStartResearchRejectsUnmetPrerequisite(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	id := newTestPlayer(t, store, "user-a", components.Resources{Metal: 1_000_000, Crystal: 1_000_000, Deuterium: 1_000_000})

	cmds.Handle(sim.Command{Kind: sim.StartResearch, UserID: "user-a", ResearchType: config.IonTech}, time.Time{})

	q, _ := store.ResearchQueue(id)
	assert.Empty(t, q.Items)
}

func TestHandleStartResearchQueuesAndDeductsCost(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{Metal: 1_000_000, Crystal: 1_000_000, Deuterium: 1_000_000})

	cmds.Handle(sim.Command{Kind: sim.StartResearch, UserID: "user-a", ResearchType: config.EnergyTech}, now)

	q, ok := store.ResearchQueue(id)
	require.True(t, ok)
	require.Len(t, q.Items, 1)
	assert.Equal(t, config.EnergyTech, q.Items[0].Type)

	res, _ := store.Resources(id)
	assert.Equal(t, int64(1_000_000-800), res.Crystal)
	assert.Equal(t, int64(1_000_000-400), res.Deuterium)
}

// TestHandleBuildShipsFleetCapExample follows spec §8 Example 5 literally:
// BASE_MAX_FLEET_SIZE=50, FLEET_SIZE_PER_COMPUTER_LEVEL=10, computer=0.
func TestHandleBuildShipsFleetCapExample(t *testing.T) {
	store, cfg, _, cmds := newTestCommands(t)
	require.Equal(t, int64(50), cfg.BaseMaxFleetSize)
	require.Equal(t, int64(10), cfg.FleetSizePerComputerLevel)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{Metal: 10_000_000, Crystal: 10_000_000, Deuterium: 10_000_000})
	store.SetBuildings(id, components.Buildings{Levels: map[config.BuildingType]int{config.Shipyard: 1}})
	store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{config.LightFighter: 49}})

	cmds.Handle(sim.Command{Kind: sim.BuildShips, UserID: "user-a", ShipType: config.LightFighter, Quantity: 2}, now)

	queue, _ := store.ShipBuildQueue(id)
	assert.Empty(t, queue.Items, "49 stationed + 2 requested exceeds the cap of 50 and is rejected")

	store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{config.LightFighter: 48}})
	cmds.Handle(sim.Command{Kind: sim.BuildShips, UserID: "user-a", ShipType: config.LightFighter, Quantity: 2}, now)

	queue, _ = store.ShipBuildQueue(id)
	require.Len(t, queue.Items, 1, "48 stationed + 2 requested fits exactly within the cap of 50")
	assert.Equal(t, int64(2), queue.Items[0].Count)
}

func TestHandleBuildShipsRejectsWithoutShipyard(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{Metal: 1_000_000, Crystal: 1_000_000, Deuterium: 1_000_000})

	cmds.Handle(sim.Command{Kind: sim.BuildShips, UserID: "user-a", ShipType: config.LightFighter, Quantity: 1}, now)

	queue, _ := store.ShipBuildQueue(id)
	assert.Empty(t, queue.Items)
}

func TestHandleFleetDispatchRejectsWhenAlreadyInFlight(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{})
	store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{config.LightFighter: 5}})
	store.SetFleetMovement(id, components.FleetMovement{ArrivalTime: now.Add(time.Hour)})

	cmds.Handle(sim.Command{
		Kind: sim.FleetDispatch, UserID: "user-a",
		ShipsSel: map[config.ShipType]int64{config.LightFighter: 1},
	}, now)

	fleet, _ := store.Fleet(id)
	assert.Equal(t, int64(5), fleet.Count(config.LightFighter), "dispatch is rejected before any ships are deducted")
}

func TestHandleFleetDispatchRejectsInsufficientShips(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{})
	store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{config.LightFighter: 1}})

	cmds.Handle(sim.Command{
		Kind: sim.FleetDispatch, UserID: "user-a",
		ShipsSel: map[config.ShipType]int64{config.LightFighter: 2},
	}, now)

	_, moving := store.FleetMovement(id)
	assert.False(t, moving)
}

func TestHandleFleetDispatchDeductsShipsAndSchedulesArrival(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{})
	store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{config.LightFighter: 5}})
	store.SetPosition(id, components.Position{Galaxy: 1, System: 1, Position: 1})

	cmds.Handle(sim.Command{
		Kind: sim.FleetDispatch, UserID: "user-a",
		Target:   sim.Coordinate{Galaxy: 1, System: 2, Position: 1},
		ShipsSel: map[config.ShipType]int64{config.LightFighter: 2},
	}, now)

	fleet, _ := store.Fleet(id)
	assert.Equal(t, int64(3), fleet.Count(config.LightFighter))

	mv, ok := store.FleetMovement(id)
	require.True(t, ok)
	assert.True(t, mv.ArrivalTime.After(now))
	assert.Equal(t, 2, mv.Target.System)
}

func TestHandleFleetDispatchColonizeRequiresColonyShip(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{})
	store.SetFleet(id, components.Fleet{Counts: map[config.ShipType]int64{config.LightFighter: 1}})

	cmds.Handle(sim.Command{
		Kind: sim.Colonize, UserID: "user-a",
		ShipsSel: map[config.ShipType]int64{config.LightFighter: 1},
	}, now)

	_, moving := store.FleetMovement(id)
	assert.False(t, moving)
}

func TestHandleFleetRecallFlipsMovement(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := newTestPlayer(t, store, "user-a", components.Resources{})
	store.SetFleetMovement(id, components.FleetMovement{
		Origin:        components.Coordinate{Galaxy: 1, System: 1, Position: 1},
		Target:        components.Coordinate{Galaxy: 1, System: 1, Position: 9},
		DepartureTime: now.Add(-10 * time.Minute),
		ArrivalTime:   now.Add(10 * time.Minute),
	})

	cmds.Handle(sim.Command{Kind: sim.FleetRecall, UserID: "user-a"}, now)

	mv, ok := store.FleetMovement(id)
	require.True(t, ok)
	assert.True(t, mv.Recalled)
	assert.Equal(t, 9, mv.Origin.Position)
	assert.Equal(t, 1, mv.Target.Position)
}

func TestHandleFleetRecallRejectsWithoutMovement(t *testing.T) {
	store, _, _, cmds := newTestCommands(t)
	newTestPlayer(t, store, "user-a", components.Resources{})

	cmds.Handle(sim.Command{Kind: sim.FleetRecall, UserID: "user-a"}, time.Time{})
}

// TestTradeOfferLifecycleExample follows spec §8 Example 4 literally:
// seller posts 100 metal for 50 crystal with the transaction fee forced to
// zero; seller pays the 100 metal escrow immediately, and on acceptance the
// buyer's crystal moves to the seller in full.
func TestTradeOfferLifecycleExample(t *testing.T) {
	store, cfg, _, cmds := newTestCommands(t)
	cfg.TradeTransactionFeeRate = 0
	cmds = NewCommands(store, cfg, events.New(logger.NewStdLogger("test", "localhost")), logger.NewStdLogger("test", "localhost"), sim.NewIDAllocator())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	newTestPlayer(t, store, "seller", components.Resources{Metal: 1000, Crystal: 1000})
	newTestPlayer(t, store, "buyer", components.Resources{Metal: 1000, Crystal: 1000})

	result := make(chan sim.CommandResult, 1)
	cmds.Handle(sim.Command{
		Kind: sim.TradeCreateOffer, UserID: "seller",
		OfferedResource: config.Metal, OfferedQty: 100,
		RequestedResource: config.Crystal, RequestedQty: 50,
		Result: result,
	}, now)
	createResult := <-result
	require.NoError(t, createResult.Err)
	offerID := createResult.Data.(string)
	require.NotEmpty(t, offerID)

	sellerID, _, _ := store.FindPlayerByUserID("seller")
	sellerRes, _ := store.Resources(sellerID)
	assert.Equal(t, int64(900), sellerRes.Metal, "offered metal escrows out immediately")

	acceptResult := make(chan sim.CommandResult, 1)
	cmds.Handle(sim.Command{
		Kind: sim.TradeAcceptOffer, UserID: "buyer",
		OfferID: offerID, Result: acceptResult,
	}, now.Add(time.Minute))
	res := <-acceptResult
	require.NoError(t, res.Err)

	sellerRes, _ = store.Resources(sellerID)
	assert.Equal(t, int64(900), sellerRes.Metal)
	assert.Equal(t, int64(1050), sellerRes.Crystal)

	buyerID, _, _ := store.FindPlayerByUserID("buyer")
	buyerRes, _ := store.Resources(buyerID)
	assert.Equal(t, int64(1100), buyerRes.Metal)
	assert.Equal(t, int64(950), buyerRes.Crystal)

	for _, offer := range store.AllTradeOffers() {
		if offer.ID != offerID {
			continue
		}
		assert.Equal(t, components.TradeOfferAccepted, offer.Status)
		assert.Equal(t, "buyer", offer.AcceptedBy)
		assert.True(t, offer.ResolvedAt.Equal(now.Add(time.Minute)))
	}
}

func TestHandleTradeAcceptOfferRejectsSellerAcceptingOwnOffer(t *testing.T) {
	store, cfg, _, cmds := newTestCommands(t)
	cfg.TradeTransactionFeeRate = 0
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newTestPlayer(t, store, "seller", components.Resources{Metal: 1000, Crystal: 1000})

	result := make(chan sim.CommandResult, 1)
	cmds.Handle(sim.Command{
		Kind: sim.TradeCreateOffer, UserID: "seller",
		OfferedResource: config.Metal, OfferedQty: 100,
		RequestedResource: config.Crystal, RequestedQty: 50,
		Result: result,
	}, now)
	offerID := (<-result).Data.(string)

	acceptResult := make(chan sim.CommandResult, 1)
	cmds.Handle(sim.Command{
		Kind: sim.TradeAcceptOffer, UserID: "seller",
		OfferID: offerID, Result: acceptResult,
	}, now)
	res := <-acceptResult
	assert.Error(t, res.Err)
}
