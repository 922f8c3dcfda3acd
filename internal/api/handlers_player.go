package api

import (
	"net/http"
	"strconv"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/internal/simerrors"
	"github.com/stellarforge/coreserver/internal/systems"
	"github.com/stellarforge/coreserver/pkg/config"
)

// playerSnapshot is the read-model of §6.1's `GET /player/{id}`: the
// full set of components attached to a single player's entity, since
// the simulation keeps exactly one planet per player entity.
type playerSnapshot struct {
	UserID      string                        `json:"user_id"`
	Position    components.Position           `json:"position"`
	Resources   components.Resources          `json:"resources"`
	Production  components.ResourceProduction `json:"production"`
	Buildings   map[config.BuildingType]int   `json:"buildings"`
	BuildQueue  []components.BuildItem        `json:"build_queue"`
	Research    map[config.ResearchType]int   `json:"research"`
	Fleet       map[config.ShipType]int64     `json:"fleet"`
	FleetInTransit *components.FleetMovement  `json:"fleet_in_transit,omitempty"`
}

func (s *Server) resolvePlayer(userID string) (sim.Coordinate, playerSnapshot, bool) {
	id, player, ok := s.store.FindPlayerByUserID(userID)
	if !ok {
		return sim.Coordinate{}, playerSnapshot{}, false
	}

	pos, _ := s.store.Position(id)
	res, _ := s.store.Resources(id)
	prod, _ := s.store.ResourceProduction(id)
	bld, _ := s.store.Buildings(id)
	bq, _ := s.store.BuildQueue(id)
	research, _ := s.store.Research(id)
	fleet, _ := s.store.Fleet(id)

	snap := playerSnapshot{
		UserID:     player.UserID,
		Position:   pos,
		Resources:  res,
		Production: prod,
		Buildings:  bld.Levels,
		BuildQueue: bq.Items,
		Research:   research.Levels,
		Fleet:      fleet.Counts,
	}
	if mv, ok := s.store.FleetMovement(id); ok {
		snap.FleetInTransit = &mv
	}

	return sim.Coordinate{Galaxy: pos.Galaxy, System: pos.System, Position: pos.Position}, snap, true
}

func (s *Server) handlePlayerSnapshot(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing player id"))
		return
	}

	_, snap, ok := s.resolvePlayer(seg[1])
	if !ok {
		writeError(w, simerrors.New(simerrors.NotFound, "no such player"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type buildRequest struct {
	BuildingType config.BuildingType `json:"building_type"`
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	var req buildRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "malformed request body", err))
		return
	}

	s.enqueueOnly(sim.Command{
		Kind:         sim.BuildBuilding,
		UserID:       userIDFromPathOrHeader(r, seg, 1),
		BuildingType: req.BuildingType,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleDemolish(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 4 {
		writeError(w, simerrors.New(simerrors.Validation, "missing building type"))
		return
	}

	s.enqueueOnly(sim.Command{
		Kind:         sim.DemolishBuilding,
		UserID:       seg[1],
		BuildingType: config.BuildingType(seg[3]),
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleCancelBuildQueue(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 4 {
		writeError(w, simerrors.New(simerrors.Validation, "missing queue index"))
		return
	}
	index, err := strconv.Atoi(seg[3])
	if err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "invalid queue index", err))
		return
	}

	s.enqueueOnly(sim.Command{
		Kind:       sim.CancelBuildQueue,
		UserID:     seg[1],
		QueueIndex: index,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleBuildingCosts(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing building type"))
		return
	}
	buildingType := config.BuildingType(seg[1])

	spec, ok := s.cfg.BuildingSpecs[buildingType]
	if !ok {
		writeError(w, simerrors.New(simerrors.NotFound, "unknown building type"))
		return
	}

	level := 0
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, simerrors.Wrap(simerrors.Validation, "invalid level", err))
			return
		}
		level = parsed
	}

	cost := systems.BuildingCostAtLevel(spec.BaseCost, spec.CostGrowth, level)
	writeJSON(w, http.StatusOK, map[string]any{
		"building_type": buildingType,
		"level":         level,
		"cost":          cost,
	})
}

// userIDFromPathOrHeader prefers the path segment (the resource owner
// per REST convention) but falls back to the X-User-Id header for
// routes where a caller relies on the pre-authenticated identity rather
// than repeating it in the URL.
func userIDFromPathOrHeader(r *http.Request, seg []string, idIndex int) string {
	if len(seg) > idIndex && seg[idIndex] != "" {
		return seg[idIndex]
	}
	return userID(r)
}
