package room

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub tracks room connections per session and broadcasts presence updates
// to them. It implements session.Presence.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *Hub) add(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[sessionID] == nil {
		h.conns[sessionID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[sessionID][conn] = struct{}{}
}

func (h *Hub) remove(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[sessionID], conn)
	if len(h.conns[sessionID]) == 0 {
		delete(h.conns, sessionID)
	}
}

// sendTo writes one message to a single connection. Writes are serialized
// by the hub mutex; the read side never writes.
func (h *Hub) sendTo(conn *websocket.Conn, msg outgoingMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[room] presence write failed: %v", err)
	}
}

// SetActivePersona broadcasts the session-visible attribute naming the
// active persona. Implements session.Presence.
func (h *Hub) SetActivePersona(sessionID, personaName string) {
	msg := outgoingMessage{
		Type:      "agent",
		SessionID: sessionID,
		Data:      map[string]string{"agent": personaName},
		Timestamp: time.Now().UnixMilli(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[sessionID] {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("[room] presence write failed for session=%s: %v", sessionID, err)
		}
	}
}
