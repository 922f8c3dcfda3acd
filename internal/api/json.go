// Package api is the thin request adapter of spec §6.1/§6.2: translating
// HTTP/JSON and WebSocket traffic into sim.Command values for the
// simulation thread, and serving read paths directly off the entity
// store, the persistence bridge, and the notification/market logs. Per
// §1's Non-goals, request validation here is minimal and authentication
// is not implemented — callers are expected to have already resolved a
// user id (carried as the `X-User-Id` header), matching the spec's "the
// request adapter accepts an already-authenticated user id."
package api

import (
	"encoding/json"
	"net/http"

	"github.com/stellarforge/coreserver/internal/simerrors"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err to its classified status (§7) via internal/simerrors,
// defaulting to 500 for anything unclassified.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, simerrors.StatusOf(err), map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// userID returns the caller's user id, set by whatever out-of-scope
// auth middleware runs in front of this adapter (§1 Non-goals).
func userID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

// segments splits the request path into its non-empty '/'-delimited
// tokens, used to pull path parameters out of routes registered with
// pkg/dispatcher, which matches but does not capture them.
func segments(r *http.Request) []string {
	path := r.URL.Path
	var out []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				out = append(out, path[start:i])
			}
			start = i + 1
		}
	}
	return out
}
