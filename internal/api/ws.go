package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stellarforge/coreserver/internal/events"
	"github.com/stellarforge/coreserver/pkg/logger"
)

func deadlineNow() time.Time { return time.Now().Add(time.Second) }

// upgrader allows any origin, matching the CORS policy the rest of the
// adapter applies (§6.2 has no separate origin restriction of its own).
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS implements §6.2: upgrade, send `welcome`, then loop reading
// client frames, replying `pong` to `ping` and `info` to anything else.
// Authentication is out of scope (§1 Non-goals); a missing token closes
// with code 1008 per the spec's wording for an auth failure, using the
// X-User-Id header the rest of the adapter relies on as the stand-in for
// an already-validated identity since a WebSocket upgrade carries no
// custom headers from a browser client, only the `token` query param.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("token")
	if uid == "" {
		uid = userID(r)
	}
	if uid == "" {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "missing token"), deadlineNow())
		_ = conn.Close()
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Trace(logger.Warning, "api", "websocket upgrade failed: "+err.Error())
		return
	}

	deregister := s.sink.Register(uid, conn)
	defer deregister()

	_ = conn.WriteJSON(events.Message{Type: "welcome"})

	for {
		select {
		case <-s.shuttingDown:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadlineNow())
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
				continue
			}
			return
		}

		if string(payload) == "ping" {
			_ = conn.WriteJSON(events.Message{Type: "pong"})
			continue
		}
		_ = conn.WriteJSON(events.Message{Type: "info", Payload: string(payload)})
	}
}
