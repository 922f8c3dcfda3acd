package api

import (
	"net/http"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/internal/simerrors"
	"github.com/stellarforge/coreserver/pkg/config"
)

func (s *Server) handleFleetGet(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing player id"))
		return
	}

	id, _, ok := s.store.FindPlayerByUserID(seg[1])
	if !ok {
		writeError(w, simerrors.New(simerrors.NotFound, "no such player"))
		return
	}

	fleet, _ := s.store.Fleet(id)
	shipQueue, _ := s.store.ShipBuildQueue(id)
	resp := map[string]any{
		"ships":            fleet.Counts,
		"ship_build_queue": shipQueue.Items,
	}
	if mv, ok := s.store.FleetMovement(id); ok {
		resp["in_transit"] = mv
	}
	writeJSON(w, http.StatusOK, resp)
}

type buildShipsRequest struct {
	ShipType config.ShipType `json:"ship_type"`
	Quantity int64           `json:"quantity"`
}

func (s *Server) handleBuildShips(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	var req buildShipsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "malformed request body", err))
		return
	}

	s.enqueueOnly(sim.Command{
		Kind:     sim.BuildShips,
		UserID:   userIDFromPathOrHeader(r, seg, 1),
		ShipType: req.ShipType,
		Quantity: sim.NormalizeQuantity(req.Quantity),
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type fleetDispatchRequest struct {
	Target   sim.Coordinate            `json:"target"`
	Mission  string                    `json:"mission"`
	SpeedPct float64                   `json:"speed_pct"`
	Ships    map[config.ShipType]int64 `json:"ships"`
}

func (s *Server) handleFleetDispatch(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	var req fleetDispatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "malformed request body", err))
		return
	}

	kind := sim.FleetDispatch
	if components.Mission(req.Mission) == components.MissionColonize {
		kind = sim.Colonize
	}

	s.enqueueOnly(sim.Command{
		Kind:     kind,
		UserID:   userIDFromPathOrHeader(r, seg, 1),
		Target:   sim.NormalizeCoordinate(req.Target),
		Mission:  req.Mission,
		SpeedPct: req.SpeedPct,
		ShipsSel: req.Ships,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleFleetRecall(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing player id"))
		return
	}

	s.enqueueOnly(sim.Command{
		Kind:   sim.FleetRecall,
		UserID: seg[1],
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
