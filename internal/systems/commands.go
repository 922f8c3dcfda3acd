package systems

import (
	"math"
	"time"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/internal/events"
	"github.com/stellarforge/coreserver/internal/market"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/pkg/config"
	"github.com/stellarforge/coreserver/pkg/logger"
)

// Commands implements sim.CommandHandler (spec §4.11): one drained
// command is applied against the entity store per call. Every handler
// below is a submission-time gate — cost, prerequisite, and capacity
// checks all happen here, once, rather than being re-checked by the
// ticking systems that later complete the resulting queue entries.
type Commands struct {
	store   *ecs.Store
	cfg     config.Config
	sink    *events.Sink
	log     logger.Logger
	ids     *sim.IDAllocator
	trades  *market.Log

	tradeReporter TradeReporter
}

// TradeReporter receives a newly created offer or a newly recorded trade
// event, for the persistence bridge to insert into trade_offers/
// trade_events (§4.12) without this package needing to import the
// bridge itself.
type TradeReporter struct {
	Offer func(components.TradeOffer)
	Event func(market.Event)
}

func NewCommands(store *ecs.Store, cfg config.Config, sink *events.Sink, log logger.Logger, ids *sim.IDAllocator) *Commands {
	return &Commands{store: store, cfg: cfg, sink: sink, log: log, ids: ids, trades: market.NewLog()}
}

// WithTradeReporter attaches the persistence hooks for marketplace
// activity. Returns the command handler to allow chain calling.
func (c *Commands) WithTradeReporter(reporter TradeReporter) *Commands {
	c.tradeReporter = reporter
	return c
}

// TradeHistory exposes the command handler's event log to the request
// adapter (spec §4.10 "list offers / history").
func (c *Commands) TradeHistory() *market.Log { return c.trades }

func (c *Commands) reportOffer(offer components.TradeOffer) {
	if c.tradeReporter.Offer != nil {
		c.tradeReporter.Offer(offer)
	}
}

func (c *Commands) reportTradeEvent(e market.Event) {
	if c.tradeReporter.Event != nil {
		c.tradeReporter.Event(e)
	}
}

func (c *Commands) Handle(cmd sim.Command, now time.Time) {
	switch cmd.Kind {
	case sim.BuildBuilding:
		c.handleBuildBuilding(cmd, now)
	case sim.DemolishBuilding:
		c.handleDemolishBuilding(cmd)
	case sim.CancelBuildQueue:
		c.handleCancelBuildQueue(cmd)
	case sim.UpdatePlayerActivity:
		c.handleUpdatePlayerActivity(cmd, now)
	case sim.StartResearch:
		c.handleStartResearch(cmd, now)
	case sim.BuildShips:
		c.handleBuildShips(cmd, now)
	case sim.Colonize:
		c.handleFleetDispatch(cmd, now, components.MissionColonize)
	case sim.FleetDispatch:
		c.handleFleetDispatch(cmd, now, "")
	case sim.FleetRecall:
		c.handleFleetRecall(cmd, now)
	case sim.TradeCreateOffer:
		c.handleTradeCreateOffer(cmd, now)
	case sim.TradeAcceptOffer:
		c.handleTradeAcceptOffer(cmd, now)
	case sim.ChooseStart:
		c.handleChooseStart(cmd, now)
	default:
		c.log.Trace(logger.Warning, "commands", "dropped command of unknown kind "+string(cmd.Kind))
	}
}

func (c *Commands) resolveEntity(userID string) (ecs.EntityID, components.Player, bool) {
	id, player, ok := c.store.FindPlayerByUserID(userID)
	if !ok {
		c.log.Trace(logger.Warning, "commands", "dropped command for unknown user "+userID)
	}
	return id, player, ok
}

func (c *Commands) reject(userID, reason string) {
	c.log.Trace(logger.Info, "commands", "rejected: "+reason)
	if userID != "" {
		c.sink.Send(userID, events.Message{Type: "command_rejected", Payload: map[string]any{"reason": reason}})
	}
}

func (c *Commands) handleBuildBuilding(cmd sim.Command, now time.Time) {
	id, _, ok := c.resolveEntity(cmd.UserID)
	if !ok {
		return
	}

	spec, ok := c.cfg.BuildingSpecs[cmd.BuildingType]
	if !ok {
		c.reject(cmd.UserID, "unknown building type")
		return
	}

	bld, _ := c.store.Buildings(id)
	for reqType, reqLevel := range spec.Requires {
		if bld.Level(reqType) < reqLevel {
			c.reject(cmd.UserID, "prerequisite not met for "+string(cmd.BuildingType))
			return
		}
	}

	level := bld.Level(cmd.BuildingType)
	cost := BuildingCostAtLevel(spec.BaseCost, spec.CostGrowth, level)

	res, _ := c.store.Resources(id)
	if !hasAtLeast(res, cost) {
		c.reject(cmd.UserID, "insufficient resources for "+string(cmd.BuildingType))
		return
	}
	c.store.SetResources(id, subtractCost(res, cost))

	research, _ := c.store.Research(id)
	duration := BuildDuration(c.cfg, spec.BaseTimeSecs, level, research.Level(config.HyperspaceTech), bld.Level(config.RobotFactory))

	q, _ := c.store.BuildQueue(id)
	q.Items = append(q.Items, components.BuildItem{
		Type:              cmd.BuildingType,
		CompletionTime:    now.Add(duration),
		Cost:              cost,
		QueuedAt:          now,
		ExpectedDurationS: duration.Seconds(),
	})
	c.store.SetBuildQueue(id, q)

	c.sink.Send(cmd.UserID, events.Message{Type: "build_queued", Payload: map[string]any{
		"building_type": cmd.BuildingType, "completion_time": q.Items[len(q.Items)-1].CompletionTime,
	}})
}

func (c *Commands) handleDemolishBuilding(cmd sim.Command) {
	id, _, ok := c.resolveEntity(cmd.UserID)
	if !ok {
		return
	}

	bld, _ := c.store.Buildings(id)
	level := bld.Level(cmd.BuildingType)
	if level <= 0 {
		c.reject(cmd.UserID, "nothing to demolish")
		return
	}
	newLevel := level - 1

	for otherType, otherSpec := range c.cfg.BuildingSpecs {
		reqLevel, needs := otherSpec.Requires[cmd.BuildingType]
		if !needs || bld.Level(otherType) <= 0 {
			continue
		}
		if newLevel < reqLevel {
			c.reject(cmd.UserID, "demolition would break a prerequisite of "+string(otherType))
			return
		}
	}

	spec := c.cfg.BuildingSpecs[cmd.BuildingType]
	refund := scaleCost(BuildingCostAtLevel(spec.BaseCost, spec.CostGrowth, newLevel), c.cfg.DemolitionRefundRate)

	if bld.Levels == nil {
		bld.Levels = map[config.BuildingType]int{}
	}
	bld.Levels[cmd.BuildingType] = newLevel
	c.store.SetBuildings(id, bld)

	res, _ := c.store.Resources(id)
	c.store.SetResources(id, addCost(res, refund))

	c.sink.Send(cmd.UserID, events.Message{Type: "building_demolished", Payload: map[string]any{
		"building_type": cmd.BuildingType, "level": newLevel,
	}})
}

func (c *Commands) handleCancelBuildQueue(cmd sim.Command) {
	id, _, ok := c.resolveEntity(cmd.UserID)
	if !ok {
		return
	}

	q, _ := c.store.BuildQueue(id)
	if cmd.QueueIndex < 0 || cmd.QueueIndex >= len(q.Items) {
		c.reject(cmd.UserID, "build queue index out of range")
		return
	}

	item := q.Items[cmd.QueueIndex]
	refund := scaleCost(item.Cost, c.cfg.CancelBuildRefundRate)

	q.Items = append(q.Items[:cmd.QueueIndex], q.Items[cmd.QueueIndex+1:]...)
	c.store.SetBuildQueue(id, q)

	res, _ := c.store.Resources(id)
	c.store.SetResources(id, addCost(res, refund))

	c.sink.Send(cmd.UserID, events.Message{Type: "build_cancelled", Payload: map[string]any{"building_type": item.Type}})
}

func (c *Commands) handleUpdatePlayerActivity(cmd sim.Command, now time.Time) {
	id, player, ok := c.resolveEntity(cmd.UserID)
	if !ok {
		return
	}
	player.LastActive = now
	c.store.SetPlayer(id, player)
}

func (c *Commands) handleStartResearch(cmd sim.Command, now time.Time) {
	id, _, ok := c.resolveEntity(cmd.UserID)
	if !ok {
		return
	}

	spec, ok := c.cfg.ResearchSpecs[cmd.ResearchType]
	if !ok {
		c.reject(cmd.UserID, "unknown research type")
		return
	}

	research, _ := c.store.Research(id)
	for reqType, reqLevel := range spec.RequiresTech {
		if research.Level(reqType) < reqLevel {
			c.reject(cmd.UserID, "prerequisite not met for "+string(cmd.ResearchType))
			return
		}
	}

	level := research.Level(cmd.ResearchType)
	cost := ResearchCostAtLevel(spec.BaseCost, level)

	res, _ := c.store.Resources(id)
	if !hasAtLeast(res, cost) {
		c.reject(cmd.UserID, "insufficient resources for "+string(cmd.ResearchType))
		return
	}
	c.store.SetResources(id, subtractCost(res, cost))

	bld, _ := c.store.Buildings(id)
	duration := ResearchDuration(c.cfg, spec.BaseTimeSecs, level, bld.Level(config.ResearchLab))

	q, _ := c.store.ResearchQueue(id)
	q.Items = append(q.Items, components.ResearchItem{
		Type:              cmd.ResearchType,
		CompletionTime:    now.Add(duration),
		Cost:              cost,
		QueuedAt:          now,
		ExpectedDurationS: duration.Seconds(),
	})
	c.store.SetResearchQueue(id, q)

	c.sink.Send(cmd.UserID, events.Message{Type: "research_queued", Payload: map[string]any{"research_type": cmd.ResearchType}})
}

func (c *Commands) handleBuildShips(cmd sim.Command, now time.Time) {
	id, _, ok := c.resolveEntity(cmd.UserID)
	if !ok {
		return
	}

	bld, _ := c.store.Buildings(id)
	shipyardLevel := bld.Level(config.Shipyard)
	if shipyardLevel < 1 {
		c.reject(cmd.UserID, "no shipyard")
		return
	}

	spec, ok := c.cfg.ShipSpecs[cmd.ShipType]
	if !ok {
		c.reject(cmd.UserID, "unknown ship type")
		return
	}

	quantity := sim.NormalizeQuantity(cmd.Quantity)

	fleet, _ := c.store.Fleet(id)
	shipQueue, _ := c.store.ShipBuildQueue(id)

	var queuedTotal int64
	for _, item := range shipQueue.Items {
		queuedTotal += item.Count
	}

	research, _ := c.store.Research(id)
	maxFleet := MaxFleetSize(c.cfg, research.Level(config.ComputerTech))
	if fleet.Total()+queuedTotal+quantity > maxFleet {
		c.reject(cmd.UserID, "fleet cap exceeded")
		return
	}

	if len(shipQueue.Items) >= MaxShipyardQueueLength(c.cfg, shipyardLevel) {
		c.reject(cmd.UserID, "shipyard queue full")
		return
	}

	cost := config.Cost{
		Metal:     spec.Cost.Metal * quantity,
		Crystal:   spec.Cost.Crystal * quantity,
		Deuterium: spec.Cost.Deuterium * quantity,
	}

	res, _ := c.store.Resources(id)
	if !hasAtLeast(res, cost) {
		c.reject(cmd.UserID, "insufficient resources for "+string(cmd.ShipType))
		return
	}
	c.store.SetResources(id, subtractCost(res, cost))

	duration := ShipyardDuration(c.cfg, spec.BuildTimeSecs, quantity, research.Level(config.HyperspaceTech), bld.Level(config.RobotFactory))

	shipQueue.Items = append(shipQueue.Items, components.ShipBuildItem{
		Type:           cmd.ShipType,
		Count:          quantity,
		CompletionTime: now.Add(duration),
		Cost:           cost,
		QueuedAt:       now,
	})
	c.store.SetShipBuildQueue(id, shipQueue)

	c.sink.Send(cmd.UserID, events.Message{Type: "ship_build_queued", Payload: map[string]any{
		"ship_type": cmd.ShipType, "quantity": quantity,
	}})
}

// handleFleetDispatch implements §4.8 dispatch. forceMission overrides
// cmd.Mission when non-empty, used by the Colonize command alias.
func (c *Commands) handleFleetDispatch(cmd sim.Command, now time.Time, forceMission components.Mission) {
	id, _, ok := c.resolveEntity(cmd.UserID)
	if !ok {
		return
	}

	if _, alreadyMoving := c.store.FleetMovement(id); alreadyMoving {
		c.reject(cmd.UserID, "fleet already in flight")
		return
	}

	fleet, _ := c.store.Fleet(id)
	for t, count := range cmd.ShipsSel {
		if count <= 0 || fleet.Count(t) < count {
			c.reject(cmd.UserID, "insufficient ships for dispatch")
			return
		}
	}

	mission := forceMission
	if mission == "" {
		mission = components.Mission(cmd.Mission)
	}
	if mission == components.MissionColonize && cmd.ShipsSel[config.ColonyShip] <= 0 {
		c.reject(cmd.UserID, "colonize mission requires a colony ship")
		return
	}

	// Computed against the fleet as it stood before dispatch, so an
	// empty/invalid ShipsSel still falls back to the fastest ship the
	// entity actually owns (§4.8) rather than jumping straight to the
	// light fighter base speed.
	speed := SlowestShipSpeed(c.cfg, cmd.ShipsSel, fleet.Counts)

	if fleet.Counts != nil {
		for t, count := range cmd.ShipsSel {
			fleet.Counts[t] -= count
		}
	}
	c.store.SetFleet(id, fleet)

	originPos, _ := c.store.Position(id)
	origin := components.Coordinate{Galaxy: originPos.Galaxy, System: originPos.System, Position: originPos.Position}
	target := sim.NormalizeCoordinate(cmd.Target)
	targetCoord := components.Coordinate{Galaxy: target.Galaxy, System: target.System, Position: target.Position}
	seconds := TravelSeconds(c.cfg, origin, targetCoord, speed, cmd.SpeedPct)
	arrival := now.Add(time.Duration(seconds) * time.Second)

	c.store.SetFleetMovement(id, components.FleetMovement{
		Origin:        origin,
		Target:        targetCoord,
		DepartureTime: now,
		ArrivalTime:   arrival,
		Speed:         speed,
		Mission:       mission,
		OwnerID:       cmd.UserID,
		Ships:         cmd.ShipsSel,
	})

	if mission == components.MissionAttack {
		if defenderID, ok := c.defenderAt(targetCoord, cmd.UserID); ok {
			c.sink.Send(defenderID, events.Message{Type: "incoming_attack", Payload: map[string]any{
				"attacker_user_id": cmd.UserID, "eta": arrival,
			}})
		}
	}
}

func (c *Commands) defenderAt(target components.Coordinate, excludeUserID string) (string, bool) {
	for pid, player := range c.store.AllPlayers() {
		if player.UserID == excludeUserID {
			continue
		}
		pos, ok := c.store.Position(pid)
		if !ok || pos.Galaxy != target.Galaxy || pos.System != target.System || pos.Position != target.Position {
			continue
		}
		return player.UserID, true
	}
	return "", false
}

func (c *Commands) handleFleetRecall(cmd sim.Command, now time.Time) {
	id, _, ok := c.resolveEntity(cmd.UserID)
	if !ok {
		return
	}

	mv, ok := c.store.FleetMovement(id)
	if !ok {
		c.reject(cmd.UserID, "no fleet in flight")
		return
	}

	recalled, err := Recall(mv, now)
	if err != nil {
		c.reject(cmd.UserID, err.Error())
		return
	}
	c.store.SetFleetMovement(id, recalled)

	c.sink.Send(cmd.UserID, events.Message{Type: "fleet_recalled", Payload: map[string]any{"arrival_time": recalled.ArrivalTime}})
}

func (c *Commands) handleTradeCreateOffer(cmd sim.Command, now time.Time) {
	id, _, ok := c.resolveEntity(cmd.UserID)
	if !ok {
		c.replyResult(cmd, nil, errRejected("unknown user"))
		return
	}

	if cmd.OfferedQty <= 0 || cmd.RequestedQty <= 0 {
		c.replyResult(cmd, nil, errRejected("amounts must be positive"))
		return
	}

	res, _ := c.store.Resources(id)
	if resourceAmount(res, cmd.OfferedResource) < cmd.OfferedQty {
		c.replyResult(cmd, nil, errRejected("insufficient resources to offer"))
		return
	}
	c.store.SetResources(id, subtractResourceKind(res, cmd.OfferedResource, cmd.OfferedQty))

	offerID := c.ids.Next()
	offer := components.TradeOffer{
		ID:           offerID,
		SellerID:     cmd.UserID,
		Offered:      costFromKind(cmd.OfferedResource, cmd.OfferedQty),
		RequestedRes: cmd.RequestedResource,
		RequestedQty: cmd.RequestedQty,
		Status:       components.TradeOfferOpen,
		CreatedAt:    now,
	}
	c.store.SetTradeOffer(c.store.CreateEntity(), offer)
	c.reportOffer(offer)

	c.reportTradeEvent(c.trades.Record(market.Event{
		Type:              market.EventOfferCreated,
		OfferID:           offerID,
		SellerID:          cmd.UserID,
		OfferedResource:   cmd.OfferedResource,
		OfferedQty:        cmd.OfferedQty,
		RequestedResource: cmd.RequestedResource,
		RequestedQty:      cmd.RequestedQty,
		Status:            string(components.TradeOfferOpen),
		Timestamp:         now,
	}))

	c.sink.Send(cmd.UserID, events.Message{Type: "offer_created", Payload: map[string]any{"offer_id": offerID}})
	c.replyResult(cmd, offerID, nil)
}

func (c *Commands) handleTradeAcceptOffer(cmd sim.Command, now time.Time) {
	var offerEntity ecs.EntityID
	var offer components.TradeOffer
	found := false
	for eid, o := range c.store.AllTradeOffers() {
		if o.ID == cmd.OfferID {
			offerEntity, offer, found = eid, o, true
			break
		}
	}
	if !found {
		c.replyResult(cmd, nil, errRejected("offer not found"))
		return
	}
	if offer.Status != components.TradeOfferOpen {
		c.replyResult(cmd, nil, errRejected("offer is not open"))
		return
	}
	if offer.SellerID == cmd.UserID {
		c.replyResult(cmd, nil, errRejected("seller cannot accept own offer"))
		return
	}

	buyerID, _, ok := c.resolveEntity(cmd.UserID)
	if !ok {
		c.replyResult(cmd, nil, errRejected("unknown buyer"))
		return
	}
	sellerID, _, ok := c.resolveEntity(offer.SellerID)
	if !ok {
		c.replyResult(cmd, nil, errRejected("unknown seller"))
		return
	}

	buyerRes, _ := c.store.Resources(buyerID)
	if resourceAmount(buyerRes, offer.RequestedRes) < offer.RequestedQty {
		c.replyResult(cmd, nil, errRejected("insufficient resources to accept"))
		return
	}

	buyerRes = subtractResourceKind(buyerRes, offer.RequestedRes, offer.RequestedQty)
	buyerRes = addCost(buyerRes, offer.Offered)
	c.store.SetResources(buyerID, buyerRes)

	sellerRes, _ := c.store.Resources(sellerID)
	proceeds := market.ApplyFee(offer.RequestedQty, c.cfg.TradeTransactionFeeRate)
	sellerRes = creditResourceKind(sellerRes, offer.RequestedRes, proceeds)
	c.store.SetResources(sellerID, sellerRes)

	offer.Status = components.TradeOfferAccepted
	offer.AcceptedBy = cmd.UserID
	offer.ResolvedAt = now
	c.store.SetTradeOffer(offerEntity, offer)
	c.reportOffer(offer)

	c.reportTradeEvent(c.trades.Record(market.Event{
		Type:              market.EventTradeCompleted,
		OfferID:           offer.ID,
		SellerID:          offer.SellerID,
		BuyerID:           cmd.UserID,
		OfferedResource:   resourceKindOf(offer.Offered),
		OfferedQty:        offer.Offered.Metal + offer.Offered.Crystal + offer.Offered.Deuterium,
		RequestedResource: offer.RequestedRes,
		RequestedQty:      offer.RequestedQty,
		Status:            string(components.TradeOfferAccepted),
		Timestamp:         now,
	}))

	c.sink.Send(offer.SellerID, events.Message{Type: "trade_completed", Payload: map[string]any{"offer_id": offer.ID}})
	c.sink.Send(cmd.UserID, events.Message{Type: "trade_completed", Payload: map[string]any{"offer_id": offer.ID}})
	c.replyResult(cmd, offer.ID, nil)
}

// resourceKindOf recovers which single resource kind a costFromKind-built
// Cost represents, for event-log reporting.
func resourceKindOf(cost config.Cost) config.ResourceKind {
	switch {
	case cost.Metal > 0:
		return config.Metal
	case cost.Crystal > 0:
		return config.Crystal
	default:
		return config.Deuterium
	}
}

func (c *Commands) replyResult(cmd sim.Command, data any, err error) {
	if cmd.Result == nil {
		return
	}
	cmd.Result <- sim.CommandResult{Data: data, Err: err}
}

func errRejected(reason string) error { return rejectionError(reason) }

type rejectionError string

func (e rejectionError) Error() string { return string(e) }

func hasAtLeast(res components.Resources, cost config.Cost) bool {
	return res.Metal >= cost.Metal && res.Crystal >= cost.Crystal && res.Deuterium >= cost.Deuterium
}

func subtractCost(res components.Resources, cost config.Cost) components.Resources {
	res.Metal -= cost.Metal
	res.Crystal -= cost.Crystal
	res.Deuterium -= cost.Deuterium
	return res
}

func addCost(res components.Resources, cost config.Cost) components.Resources {
	res.Metal += cost.Metal
	res.Crystal += cost.Crystal
	res.Deuterium += cost.Deuterium
	return res
}

func scaleCost(cost config.Cost, rate float64) config.Cost {
	return config.Cost{
		Metal:     int64(math.Round(float64(cost.Metal) * rate)),
		Crystal:   int64(math.Round(float64(cost.Crystal) * rate)),
		Deuterium: int64(math.Round(float64(cost.Deuterium) * rate)),
	}
}

func resourceAmount(res components.Resources, kind config.ResourceKind) int64 {
	switch kind {
	case config.Metal:
		return res.Metal
	case config.Crystal:
		return res.Crystal
	case config.Deuterium:
		return res.Deuterium
	default:
		return 0
	}
}

func subtractResourceKind(res components.Resources, kind config.ResourceKind, qty int64) components.Resources {
	switch kind {
	case config.Metal:
		res.Metal -= qty
	case config.Crystal:
		res.Crystal -= qty
	case config.Deuterium:
		res.Deuterium -= qty
	}
	return res
}

func creditResourceKind(res components.Resources, kind config.ResourceKind, qty int64) components.Resources {
	switch kind {
	case config.Metal:
		res.Metal += qty
	case config.Crystal:
		res.Crystal += qty
	case config.Deuterium:
		res.Deuterium += qty
	}
	return res
}

func costFromKind(kind config.ResourceKind, qty int64) config.Cost {
	switch kind {
	case config.Metal:
		return config.Cost{Metal: qty}
	case config.Crystal:
		return config.Cost{Crystal: qty}
	case config.Deuterium:
		return config.Cost{Deuterium: qty}
	default:
		return config.Cost{}
	}
}
