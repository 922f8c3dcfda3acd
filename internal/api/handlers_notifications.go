package api

import (
	"net/http"
	"strconv"

	"github.com/stellarforge/coreserver/internal/simerrors"
)

func (s *Server) handleNotificationsList(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing player id"))
		return
	}

	limit, offset := pagingParams(r.URL.Query())
	writeJSON(w, http.StatusOK, s.notify.List(seg[1], limit, offset))
}

func (s *Server) handleNotificationDelete(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing notification id"))
		return
	}
	id, err := strconv.ParseInt(seg[1], 10, 64)
	if err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "invalid notification id", err))
		return
	}

	if !s.notify.Delete(userID(r), id) {
		writeError(w, simerrors.New(simerrors.NotFound, "no such notification"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
