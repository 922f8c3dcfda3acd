// Package events implements the real-time event sink of spec §4.14: a
// thread-safe fire-and-forget `Send(userID, message)` reachable from the
// simulation thread and the persistence bridge, delivering to whatever
// WebSocket connections a user currently has open. The teacher's async
// bridge captures a Python asyncio loop and schedules a coroutine onto
// it; a Go process has no event loop to capture, so the hub instead owns
// one worker goroutine per connection and a buffered per-connection
// channel, and a send that never blocks the caller.
package events

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/stellarforge/coreserver/pkg/logger"
)

// Message is the JSON envelope sent to a WebSocket client. `Type` is the
// discriminant every message shape in spec §4.14 must carry.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// outboundBuffer bounds how many unsent messages a slow client can
// accumulate; once it is full, Send drops each new message for that
// connection and keeps the backlog. Delivery is explicitly best-effort
// (spec §4.14, §9 "Event delivery").
const outboundBuffer = 64

// connection wraps one live WebSocket with its own outbound queue so a
// slow reader never blocks `Send` for other users or other connections
// of the same user.
type connection struct {
	ws  *websocket.Conn
	out chan Message
}

// Sink is the process-wide real-time fan-out hub. The zero value is not
// usable; construct with New.
type Sink struct {
	mu    sync.Mutex
	byUser map[string]map[*connection]struct{}
	log    logger.Logger
}

// New returns an empty Sink ready to accept connections.
func New(log logger.Logger) *Sink {
	return &Sink{
		byUser: make(map[string]map[*connection]struct{}),
		log:    log,
	}
}

// Register attaches a live WebSocket to a user id and starts its writer
// goroutine. The returned func deregisters and closes the connection; the
// caller (the `/ws` handler) defers it for the lifetime of the request.
func (s *Sink) Register(userID string, ws *websocket.Conn) func() {
	c := &connection{ws: ws, out: make(chan Message, outboundBuffer)}

	s.mu.Lock()
	set, ok := s.byUser[userID]
	if !ok {
		set = make(map[*connection]struct{})
		s.byUser[userID] = set
	}
	set[c] = struct{}{}
	s.mu.Unlock()

	done := make(chan struct{})
	go s.writeLoop(c, done)

	return func() {
		close(done)
		s.mu.Lock()
		if set, ok := s.byUser[userID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(s.byUser, userID)
			}
		}
		s.mu.Unlock()
		_ = c.ws.Close()
	}
}

func (s *Sink) writeLoop(c *connection, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-c.out:
			if !ok {
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				s.log.Trace(logger.Warning, "events", "dropping broken connection: "+err.Error())
				return
			}
		}
	}
}

// Send is the thread-safe fire-and-forget delivery callable from any
// goroutine, including the simulation thread and persistence bridge
// callbacks. A user with no open connections, or a full connection
// buffer, silently drops the message rather than blocking the caller.
func (s *Sink) Send(userID string, msg Message) {
	s.mu.Lock()
	conns := make([]*connection, 0, len(s.byUser[userID]))
	for c := range s.byUser[userID] {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		select {
		case c.out <- msg:
		default:
			s.log.Trace(logger.Debug, "events", "outbound buffer full, dropping message for user "+userID)
		}
	}
}

// Broadcast sends to every currently connected user, e.g. for a
// server-shutdown notice.
func (s *Sink) Broadcast(msg Message) {
	s.mu.Lock()
	userIDs := make([]string, 0, len(s.byUser))
	for id := range s.byUser {
		userIDs = append(userIDs, id)
	}
	s.mu.Unlock()

	for _, id := range userIDs {
		s.Send(id, msg)
	}
}

// MarshalForLog renders a message for structured logging without
// failing the caller on a marshal error.
func MarshalForLog(msg Message) string {
	b, err := json.Marshal(msg)
	if err != nil {
		return "<unmarshalable event>"
	}
	return string(b)
}
