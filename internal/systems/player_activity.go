package systems

import "time"

// PlayerActivity is the no-op placeholder of spec §4.3 step 3. Activity
// tracking itself happens synchronously in the `update_player_activity`
// command handler (commands.go), not on a tick cadence; this stage exists
// only to keep the fixed system order stable for a future redesign that
// might add per-tick activity effects (idle decay, AFK detection).
type PlayerActivity struct{}

func NewPlayerActivity() *PlayerActivity { return &PlayerActivity{} }

func (PlayerActivity) Name() string    { return "player_activity" }
func (PlayerActivity) Run(time.Time) {}
