package api

import (
	"net/http"

	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/internal/simerrors"
	"github.com/stellarforge/coreserver/pkg/config"
)

func (s *Server) handleResearchGet(w http.ResponseWriter, r *http.Request) {
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

	research, _ := s.store.Research(id)
	queue, _ := s.store.ResearchQueue(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"levels": research.Levels,
		"queue":  queue.Items,
	})
}

type researchRequest struct {
	ResearchType config.ResearchType `json:"research_type"`
}

func (s *Server) handleResearchPost(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	var req researchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "malformed request body", err))
		return
	}

	s.enqueueOnly(sim.Command{
		Kind:         sim.StartResearch,
		UserID:       userIDFromPathOrHeader(r, seg, 1),
		ResearchType: req.ResearchType,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
