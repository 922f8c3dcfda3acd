package api

import (
	"net/http"

	"github.com/stellarforge/coreserver/internal/simerrors"
)

func (s *Server) handleBattleReports(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing player id"))
		return
	}

	limit, offset := pagingParams(r.URL.Query())
	reports, err := s.bridge.ListBattleReports(r.Context(), seg[1], limit, offset)
	if err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "fetching battle reports failed", err))
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleEspionageReports(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing player id"))
		return
	}

	limit, offset := pagingParams(r.URL.Query())
	reports, err := s.bridge.ListEspionageReports(r.Context(), seg[1], limit, offset)
	if err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "fetching espionage reports failed", err))
		return
	}
	writeJSON(w, http.StatusOK, reports)
}
