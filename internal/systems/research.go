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

// Research implements spec §4.6: analogous to Construction but keyed by
// `Research` + `ResearchQueue`, one queue per player rather than per
// planet.
type Research struct {
	store *ecs.Store
	sink  *events.Sink
	log   logger.Logger
}

func NewResearch(store *ecs.Store, sink *events.Sink, log logger.Logger) *Research {
	return &Research{store: store, sink: sink, log: log}
}

func (r *Research) Name() string { return "research" }

func (r *Research) Run(now time.Time) {
	r.store.ResearchQueueHeads(func(id ecs.EntityID, q components.ResearchQueue) {
		r.processHead(id, q, now)
	})
}

func (r *Research) processHead(id ecs.EntityID, q components.ResearchQueue, now time.Time) {
	head := q.Items[0]

	if head.CompletionTime.IsZero() {
		q.Items = q.Items[1:]
		r.store.SetResearchQueue(id, q)
		r.log.Trace(logger.Warning, "research", "dropped malformed research queue head with no completion time")
		return
	}

	if now.Before(head.CompletionTime) {
		return
	}

	res, _ := r.store.Research(id)
	if res.Levels == nil {
		res.Levels = map[config.ResearchType]int{}
	}
	res.Levels[head.Type]++
	r.store.SetResearch(id, res)

	q.Items = q.Items[1:]
	r.store.SetResearchQueue(id, q)

	if player, ok := r.store.Player(id); ok {
		r.sink.Send(player.UserID, events.Message{
			Type: "research_complete",
			Payload: map[string]any{
				"research_type": head.Type,
				"level":         res.Levels[head.Type],
			},
		})
	}
}

// ResearchDuration implements spec §4.6's duration formula.
func ResearchDuration(cfg config.Config, baseTime float64, level int, researchLabLevel int) time.Duration {
	factor := math.Max(cfg.MinResearchTimeFactor, 1-cfg.ResearchLabFactor*float64(researchLabLevel))
	seconds := baseTime * math.Pow(1.25, float64(level)) * factor
	return time.Duration(seconds * float64(time.Second))
}

// ResearchCostAtLevel applies the `1.6^level` cost multiplier of §4.6.
func ResearchCostAtLevel(base config.Cost, level int) config.Cost {
	mult := math.Pow(1.6, float64(level))
	return config.Cost{
		Metal:     int64(math.Round(float64(base.Metal) * mult)),
		Crystal:   int64(math.Round(float64(base.Crystal) * mult)),
		Deuterium: int64(math.Round(float64(base.Deuterium) * mult)),
	}
}

// researchPrereqsMet checks spec §4.6's fixed prerequisite graph.
func researchPrereqsMet(t config.ResearchType, levels components.Research) bool {
	switch t {
	case config.IonTech:
		return levels.Level(config.LaserTech) >= 4
	case config.HyperspaceTech:
		return levels.Level(config.EnergyTech) >= 6 && levels.Level(config.LaserTech) >= 6
	case config.PlasmaTech:
		return levels.Level(config.EnergyTech) >= 8 && levels.Level(config.IonTech) >= 5
	default:
		return true
	}
}
