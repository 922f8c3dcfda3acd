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

// Battle implements spec §4.9: a deterministic, single-round resolution
// of every due, unresolved Battle. Grounded on
// original_source/src/systems/battle.py's power/shield/structure/loss
// pipeline, translated to typed Go maps in place of the original's
// string-keyed dicts and defensive try/except wrapping.
type Battle struct {
	store *ecs.Store
	cfg   config.Config
	sink  *events.Sink
	log   logger.Logger

	reporter BattleReporter
}

// BattleReporter receives every battle as soon as it resolves, for the
// persistence bridge to insert into battle_reports (§4.12) without this
// package needing to import the bridge itself.
type BattleReporter func(components.Battle)

func NewBattle(store *ecs.Store, cfg config.Config, sink *events.Sink, log logger.Logger) *Battle {
	return &Battle{store: store, cfg: cfg, sink: sink, log: log}
}

// WithReporter attaches a BattleReporter, called once per resolved
// battle. Returns the battle system to allow chain calling.
func (b *Battle) WithReporter(reporter BattleReporter) *Battle {
	b.reporter = reporter
	return b
}

func (b *Battle) Name() string { return "battle" }

func (b *Battle) Run(now time.Time) {
	var due []ecs.EntityID
	b.store.PendingBattles(func(id ecs.EntityID, battle components.Battle) {
		if !now.Before(battle.ScheduledTime) {
			due = append(due, id)
		}
	})

	for _, id := range due {
		battle, ok := b.store.Battle(id)
		if !ok || battle.Resolved {
			continue
		}
		b.resolve(id, battle, now)
	}
}

func (b *Battle) resolve(id ecs.EntityID, battle components.Battle, now time.Time) {
	atkPower := b.power(battle.AttackerShips)
	defPower := b.power(battle.DefenderShips)

	atkAttack := atkPower
	defAttack := defPower
	atkShield := b.shield(battle.AttackerShips)
	defShield := b.shield(battle.DefenderShips)
	atkStruct := b.structure(battle.AttackerShips)
	defStruct := b.structure(battle.DefenderShips)

	dmgToDef := math.Max(0, atkAttack-defShield)
	dmgToAtk := math.Max(0, defAttack-atkShield)

	defLossFrac := lossFraction(dmgToDef, defStruct)
	atkLossFrac := lossFraction(dmgToAtk, atkStruct)

	attackerLosses, attackerRemaining := applyLosses(battle.AttackerShips, atkLossFrac)
	defenderLosses, defenderRemaining := applyLosses(battle.DefenderShips, defLossFrac)

	atkRemainingPower := b.power(attackerRemaining)
	defRemainingPower := b.power(defenderRemaining)

	winner := components.WinnerDraw
	switch {
	case atkRemainingPower > defRemainingPower:
		winner = components.WinnerAttacker
	case defRemainingPower > atkRemainingPower:
		winner = components.WinnerDefender
	case atkPower > defPower:
		winner = components.WinnerAttacker
	case defPower > atkPower:
		winner = components.WinnerDefender
	}

	battle.Outcome = &components.BattleOutcome{
		Winner:                 winner,
		AttackerPower:          atkPower,
		DefenderPower:          defPower,
		AttackerRemainingPower: atkRemainingPower,
		DefenderRemainingPower: defRemainingPower,
		AttackerLosses:         attackerLosses,
		DefenderLosses:         defenderLosses,
		AttackerRemaining:      attackerRemaining,
		DefenderRemaining:      defenderRemaining,
		Location:               battle.Location,
		ResolvedAt:             now,
	}
	battle.Resolved = true
	b.store.SetBattle(id, battle)

	b.log.Trace(logger.Info, "battle", "battle_resolved")

	report := map[string]any{
		"attacker_user_id": battle.AttackerID,
		"defender_user_id": battle.DefenderID,
		"location":         battle.Location,
		"outcome":          battle.Outcome,
	}
	b.sink.Send(battle.AttackerID, events.Message{Type: "battle_report", Payload: report})
	b.sink.Send(battle.DefenderID, events.Message{Type: "battle_report", Payload: report})

	if b.reporter != nil {
		b.reporter(battle)
	}
}

func (b *Battle) power(ships map[config.ShipType]int64) float64 {
	var total float64
	for t, count := range ships {
		spec, ok := b.cfg.ShipSpecs[t]
		if !ok {
			continue
		}
		total += float64(count) * float64(spec.BaseAttack)
	}
	return total
}

func (b *Battle) shield(ships map[config.ShipType]int64) float64 {
	var total float64
	for t, count := range ships {
		spec, ok := b.cfg.ShipSpecs[t]
		if !ok {
			continue
		}
		total += float64(count) * float64(spec.BaseShield)
	}
	return total
}

func (b *Battle) structure(ships map[config.ShipType]int64) float64 {
	var total float64
	for t, count := range ships {
		spec, ok := b.cfg.ShipSpecs[t]
		if !ok {
			continue
		}
		total += float64(count) * float64(spec.Cost.Metal+spec.Cost.Crystal) / 10
	}
	return total
}

func lossFraction(damage, structure float64) float64 {
	if structure <= 0 {
		return 0
	}
	frac := damage / structure
	if frac > 1 {
		return 1
	}
	if frac < 0 {
		return 0
	}
	return frac
}

func applyLosses(ships map[config.ShipType]int64, fraction float64) (losses, remaining map[config.ShipType]int64) {
	losses = map[config.ShipType]int64{}
	remaining = map[config.ShipType]int64{}
	if fraction <= 0 {
		for t, c := range ships {
			remaining[t] = c
		}
		return losses, remaining
	}

	for t, c := range ships {
		destroyed := int64(float64(c) * fraction)
		if destroyed > c {
			destroyed = c
		}
		losses[t] = destroyed
		if left := c - destroyed; left > 0 {
			remaining[t] = left
		}
	}
	return losses, remaining
}
