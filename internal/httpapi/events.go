package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dawsonblock/rfsn-kernel/internal/agent"
	"github.com/dawsonblock/rfsn-kernel/internal/logging"
)

// Event is one turn-loop lifecycle event broadcast to subscribers.
type Event struct {
	SessionID string         `json:"session_id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
}

// EventHub fans out turn-loop events to any WebSocket clients watching
// a given session.
type EventHub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewEventHub returns an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{subs: map[string]map[chan Event]struct{}{}}
}

// EmitterFor returns an agent.EmitFunc that broadcasts every event under
// sessionID to that session's subscribers.
func (h *EventHub) EmitterFor(sessionID string) agent.EmitFunc {
	return func(eventType string, payload map[string]any) {
		h.broadcast(Event{SessionID: sessionID, Type: eventType, Payload: payload})
	}
}

func (h *EventHub) subscribe(sessionID string) chan Event {
	ch := make(chan Event, 64)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = map[chan Event]struct{}{}
	}
	h.subs[sessionID][ch] = struct{}{}
	return ch
}

func (h *EventHub) unsubscribe(sessionID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[sessionID], ch)
	close(ch)
}

func (h *EventHub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block the turn loop.
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// ServeEvents upgrades the connection and streams sessionID's turn
// events to the client as JSON text frames until the client disconnects.
func (h *EventHub) ServeEvents(sessionID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Get(logging.CategoryHTTP).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ch := h.subscribe(sessionID)
		defer h.unsubscribe(sessionID, ch)

		for ev := range ch {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
