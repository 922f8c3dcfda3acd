package systems

import (
	"math"
	"strconv"
	"time"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/internal/events"
	"github.com/stellarforge/coreserver/pkg/config"
	"github.com/stellarforge/coreserver/pkg/logger"
)

// Construction implements spec §4.5: inspect each entity's BuildQueue
// head, complete it once `completion_time` has passed. Submission-time
// validation (cost, prerequisites, duration) lives in the command
// handler (commands.go) since it runs once at enqueue rather than every
// tick.
type Construction struct {
	store *ecs.Store
	sink  *events.Sink
	log   logger.Logger
}

func NewConstruction(store *ecs.Store, sink *events.Sink, log logger.Logger) *Construction {
	return &Construction{store: store, sink: sink, log: log}
}

func (c *Construction) Name() string { return "construction" }

func (c *Construction) Run(now time.Time) {
	c.store.BuildQueueHeads(func(id ecs.EntityID, q components.BuildQueue) {
		c.processHead(id, q, now)
	})
}

func (c *Construction) processHead(id ecs.EntityID, q components.BuildQueue, now time.Time) {
	head := q.Items[0]

	if head.CompletionTime.IsZero() {
		q.Items = q.Items[1:]
		c.store.SetBuildQueue(id, q)
		c.log.Trace(logger.Warning, "construction", "dropped malformed build queue head with no completion time")
		return
	}

	if now.Before(head.CompletionTime) {
		return
	}

	bld, _ := c.store.Buildings(id)
	if bld.Levels == nil {
		bld.Levels = map[config.BuildingType]int{}
	}
	bld.Levels[head.Type]++
	c.store.SetBuildings(id, bld)

	q.Items = q.Items[1:]
	c.store.SetBuildQueue(id, q)

	c.log.Trace(logger.Info, "construction", "completed building "+string(head.Type)+" to level "+strconv.Itoa(bld.Levels[head.Type]))

	if player, ok := c.store.Player(id); ok {
		c.sink.Send(player.UserID, events.Message{
			Type: "building_complete",
			Payload: map[string]any{
				"building_type": head.Type,
				"level":         bld.Levels[head.Type],
			},
		})
	}
}

// BuildDuration computes spec §4.5's duration formula, applied once at
// submission time.
func BuildDuration(cfg config.Config, baseTime float64, level int, hyperspaceLevel, robotFactoryLevel int) time.Duration {
	factor := (1 - cfg.HyperspaceBuildFactor*float64(hyperspaceLevel)) *
		(1 - cfg.RobotFactoryBuildFactor*float64(robotFactoryLevel))
	factor = math.Max(cfg.MinBuildTimeFactor, factor)

	seconds := baseTime * math.Pow(1.2, float64(level)) * factor
	return time.Duration(seconds * float64(time.Second))
}

// BuildingCostAtLevel applies the per-building cost growth multiplier of
// spec §4.5 ("Prerequisites ... checked at submission") to a base cost.
func BuildingCostAtLevel(base config.Cost, growth float64, level int) config.Cost {
	mult := math.Pow(growth, float64(level))
	return config.Cost{
		Metal:     int64(math.Round(float64(base.Metal) * mult)),
		Crystal:   int64(math.Round(float64(base.Crystal) * mult)),
		Deuterium: int64(math.Round(float64(base.Deuterium) * mult)),
	}
}
