package sim

import "github.com/stellarforge/coreserver/pkg/config"

// Kind enumerates the command kinds command ingress (§4.11) accepts.
type Kind string

const (
	BuildBuilding       Kind = "build_building"
	DemolishBuilding    Kind = "demolish_building"
	CancelBuildQueue    Kind = "cancel_build_queue"
	UpdatePlayerActivity Kind = "update_player_activity"
	StartResearch       Kind = "start_research"
	BuildShips          Kind = "build_ships"
	Colonize            Kind = "colonize"
	FleetDispatch       Kind = "fleet_dispatch"
	FleetRecall         Kind = "fleet_recall"
	TradeCreateOffer    Kind = "trade_create_offer"
	TradeAcceptOffer    Kind = "trade_accept_offer"
	ChooseStart         Kind = "choose_start"
)

// Command is a single tagged record placed on the queue by command
// ingress (§4.11). Fields are a union of every command kind's
// parameters; only the ones relevant to `Kind` are populated. Numeric
// coordinates and quantities are normalized by the parser before the
// command reaches the queue (coordinates default to 1, quantities to
// at least 1).
type Command struct {
	Kind   Kind
	UserID string

	BuildingType config.BuildingType
	QueueIndex   int

	ResearchType config.ResearchType

	ShipType config.ShipType
	Quantity int64

	Target   Coordinate
	Mission  string
	SpeedPct float64
	ShipsSel map[config.ShipType]int64

	OfferedResource   config.ResourceKind
	OfferedQty        int64
	RequestedResource config.ResourceKind
	RequestedQty      int64
	OfferID           string

	// Result, when non-nil, receives the synchronous outcome of a
	// marketplace command (§4.10 "Operations are executed
	// synchronously"). Commands that are not blocking leave it nil.
	Result chan CommandResult
}

// Coordinate mirrors components.Coordinate to keep this package free of
// an import cycle with internal/components for the handful of fields it
// needs; the systems package converts between the two at the boundary.
type Coordinate struct {
	Galaxy   int
	System   int
	Position int
}

// CommandResult carries the synchronous outcome of a blocking command
// (trade create/accept, choose start) back to the request adapter.
type CommandResult struct {
	Err  error
	Data any
}

// NormalizeCoordinate applies the command-ingress default (1 when
// missing or zero) spec §4.11 requires.
func NormalizeCoordinate(c Coordinate) Coordinate {
	if c.Galaxy == 0 {
		c.Galaxy = 1
	}
	if c.System == 0 {
		c.System = 1
	}
	if c.Position == 0 {
		c.Position = 1
	}
	return c
}

// NormalizeQuantity applies the command-ingress default (at least 1).
func NormalizeQuantity(q int64) int64 {
	if q < 1 {
		return 1
	}
	return q
}
