package api

import (
	"net/http"
	"strconv"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/internal/simerrors"
)

// handlePlanetsList returns the caller's planet(s). The simulation keeps
// exactly one planet per player entity, so this is always a one-element
// array — kept as an array rather than a single object so a client
// written against a multi-planet topology still parses the response.
func (s *Server) handlePlanetsList(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing player id"))
		return
	}

	id, player, ok := s.store.FindPlayerByUserID(seg[1])
	if !ok {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	planet, _ := s.store.Planet(id)
	pos, _ := s.store.Position(id)
	writeJSON(w, http.StatusOK, []map[string]any{{
		"owner_id":    player.UserID,
		"name":        planet.Name,
		"temperature": planet.Temperature,
		"size":        planet.Size,
		"position":    pos,
	}})
}

func (s *Server) handlePlanetsAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var galaxy, system *int
	if raw := q.Get("galaxy"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			galaxy = &v
		}
	}
	if raw := q.Get("system"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			system = &v
		}
	}
	limit, offset := pagingParams(q)

	occupied := func(c sim.Coordinate) bool {
		_, taken := s.store.FindPlanetByCoordinate(components.Coordinate{Galaxy: c.Galaxy, System: c.System, Position: c.Position})
		return taken
	}

	coords := s.galaxy.Available(occupied, galaxy, system, limit, offset)
	writeJSON(w, http.StatusOK, coords)
}

type chooseStartRequest struct {
	Target sim.Coordinate `json:"target"`
}

func (s *Server) handleChooseStart(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	var req chooseStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "malformed request body", err))
		return
	}

	data, err := s.submit(r.Context(), sim.Command{
		Kind:   sim.ChooseStart,
		UserID: userIDFromPathOrHeader(r, seg, 1),
		Target: req.Target,
		Result: make(chan sim.CommandResult, 1),
	})
	if err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "choose start failed", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"coordinate": data})
}

// handlePlanetSelect is a no-op acknowledgement: with one planet per
// player entity there is no "active planet" state to switch, so the
// handler only checks that the player exists before confirming; the
// planet_id path segment is not checked.
func (s *Server) handlePlanetSelect(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing player id"))
		return
	}

	if _, _, ok := s.store.FindPlayerByUserID(seg[1]); !ok {
		writeError(w, simerrors.New(simerrors.NotFound, "no such player"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "selected"})
}

func pagingParams(q map[string][]string) (limit, offset int) {
	limit, offset = 50, 0
	if v, ok := q["limit"]; ok && len(v) > 0 {
		if parsed, err := strconv.Atoi(v[0]); err == nil {
			limit = parsed
		}
	}
	if v, ok := q["offset"]; ok && len(v) > 0 {
		if parsed, err := strconv.Atoi(v[0]); err == nil {
			offset = parsed
		}
	}
	return limit, offset
}
