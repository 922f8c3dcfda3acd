package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stellarforge/coreserver/internal/components"
)

// RecordBattle inserts a resolved battle's outcome into battle_reports
// (§4.12), fire-and-forget: the battle system has already applied the
// losses to both fleets by the time this is called, so a dropped write
// here only loses the historical record, never simulation state.
func (b *Bridge) RecordBattle(battle components.Battle) {
	if battle.Outcome == nil {
		return
	}
	outcome := *battle.Outcome

	attackerLosses, _ := json.Marshal(outcome.AttackerLosses)
	defenderLosses, _ := json.Marshal(outcome.DefenderLosses)

	b.SubmitAsync(func(ctx context.Context) error {
		_, err := b.pool.Exec(ctx, `
			insert into battle_reports (
				attacker_id, defender_id, galaxy, system, position, winner,
				attacker_power, defender_power, attacker_remaining_power, defender_remaining_power,
				attacker_losses, defender_losses, resolved_at
			) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, battle.AttackerID, battle.DefenderID, battle.Location.Galaxy, battle.Location.System, battle.Location.Position,
			string(outcome.Winner), outcome.AttackerPower, outcome.DefenderPower,
			outcome.AttackerRemainingPower, outcome.DefenderRemainingPower,
			attackerLosses, defenderLosses, outcome.ResolvedAt)
		return err
	})
}

// RecordEspionageReport inserts an espionage snapshot into
// espionage_reports (§4.12); snapshot is whatever the fleet movement
// system captured of the defender's components at scan time (§4.9).
func (b *Bridge) RecordEspionageReport(attackerID, defenderID string, location components.Coordinate, snapshot map[string]any, now time.Time) {
	payload, _ := json.Marshal(snapshot)

	b.SubmitAsync(func(ctx context.Context) error {
		_, err := b.pool.Exec(ctx, `
			insert into espionage_reports (attacker_id, defender_id, galaxy, system, position, snapshot, created_at)
			values ($1, $2, $3, $4, $5, $6, $7)
		`, attackerID, defenderID, location.Galaxy, location.System, location.Position, payload, now)
		return err
	})
}

// BattleReport is a single row returned by ListBattleReports, mirroring
// battle_reports' columns without requiring callers to import pgx.
type BattleReport struct {
	AttackerID string
	DefenderID string
	Location   components.Coordinate
	Winner     string
	ResolvedAt time.Time
}

// ListBattleReports returns the battle reports involving userID as
// either attacker or defender, newest-first and paged, for the
// request adapter's report history endpoint.
func (b *Bridge) ListBattleReports(ctx context.Context, userID string, limit, offset int) ([]BattleReport, error) {
	if b.pool == nil {
		return nil, nil
	}

	rows, err := b.pool.Query(ctx, `
		select attacker_id, defender_id, galaxy, system, position, winner, resolved_at
		from battle_reports
		where attacker_id = $1 or defender_id = $1
		order by resolved_at desc
		limit $2 offset $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying battle reports: %w", err)
	}
	defer rows.Close()

	var out []BattleReport
	for rows.Next() {
		var r BattleReport
		if err := rows.Scan(&r.AttackerID, &r.DefenderID, &r.Location.Galaxy, &r.Location.System, &r.Location.Position, &r.Winner, &r.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EspionageReport is a single row returned by ListEspionageReports.
type EspionageReport struct {
	AttackerID string
	DefenderID string
	Location   components.Coordinate
	Snapshot   map[string]any
	CreatedAt  time.Time
}

// ListEspionageReports returns the espionage reports where userID was
// the attacker, newest-first and paged, for the request adapter.
func (b *Bridge) ListEspionageReports(ctx context.Context, userID string, limit, offset int) ([]EspionageReport, error) {
	if b.pool == nil {
		return nil, nil
	}

	rows, err := b.pool.Query(ctx, `
		select attacker_id, defender_id, galaxy, system, position, snapshot, created_at
		from espionage_reports
		where attacker_id = $1
		order by created_at desc
		limit $2 offset $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying espionage reports: %w", err)
	}
	defer rows.Close()

	var out []EspionageReport
	for rows.Next() {
		var r EspionageReport
		var payload []byte
		if err := rows.Scan(&r.AttackerID, &r.DefenderID, &r.Location.Galaxy, &r.Location.System, &r.Location.Position, &payload, &r.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &r.Snapshot)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
