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

// Shipyard implements spec §4.7: batch-complete every item whose
// `completion_time ≤ now` in a single tick, emitting one batched event
// per entity rather than one per item.
type Shipyard struct {
	store *ecs.Store
	sink  *events.Sink
	log   logger.Logger
}

func NewShipyard(store *ecs.Store, sink *events.Sink, log logger.Logger) *Shipyard {
	return &Shipyard{store: store, sink: sink, log: log}
}

func (sy *Shipyard) Name() string { return "shipyard" }

func (sy *Shipyard) Run(now time.Time) {
	sy.store.ShipBuildQueues(func(id ecs.EntityID, q components.ShipBuildQueue) {
		sy.processQueue(id, q, now)
	})
}

func (sy *Shipyard) processQueue(id ecs.EntityID, q components.ShipBuildQueue, now time.Time) {
	fleet, _ := sy.store.Fleet(id)
	if fleet.Counts == nil {
		fleet.Counts = map[config.ShipType]int64{}
	}

	completed := make(map[config.ShipType]int64)
	remaining := q.Items[:0]

	for _, item := range q.Items {
		if item.CompletionTime.IsZero() {
			sy.log.Trace(logger.Warning, "shipyard", "dropped malformed ship build item with no completion time")
			continue
		}
		if now.Before(item.CompletionTime) {
			remaining = append(remaining, item)
			continue
		}
		fleet.Counts[item.Type] += item.Count
		completed[item.Type] += item.Count
	}

	if len(completed) == 0 {
		return
	}

	sy.store.SetFleet(id, fleet)
	q.Items = remaining
	sy.store.SetShipBuildQueue(id, q)

	if player, ok := sy.store.Player(id); ok {
		sy.sink.Send(player.UserID, events.Message{
			Type:    "ship_build_complete_batch",
			Payload: map[string]any{"completed": completed},
		})
	}
}

// ShipyardDuration implements spec §4.7's duration formula:
// `base_time_per_unit · quantity · hyper_factor · shipyard_factor ·
// robot_factor`, clamped to MIN_BUILD_TIME_FACTOR.
func ShipyardDuration(cfg config.Config, baseTimePerUnit float64, quantity int64, hyperspaceLevel, robotFactoryLevel int) time.Duration {
	factor := cfg.ShipyardBuildFactor *
		(1 - cfg.HyperspaceBuildFactor*float64(hyperspaceLevel)) *
		(1 - cfg.RobotFactoryBuildFactor*float64(robotFactoryLevel))
	factor = math.Max(cfg.MinBuildTimeFactor, factor)

	seconds := baseTimePerUnit * float64(quantity) * factor
	return time.Duration(seconds * float64(time.Second))
}

// MaxShipyardQueueLength implements §4.7's queue-length limit.
func MaxShipyardQueueLength(cfg config.Config, shipyardLevel int) int {
	return cfg.ShipyardQueueBase + cfg.ShipyardQueuePerLevel*shipyardLevel
}

// MaxFleetSize implements invariant 3's cap.
func MaxFleetSize(cfg config.Config, computerLevel int) int64 {
	return cfg.BaseMaxFleetSize + cfg.FleetSizePerComputerLevel*int64(computerLevel)
}
