// Package room is the transport gateway for a live call: it accepts the
// websocket connection of a room participant, receives chunked byte
// streams (image uploads) for the session's ingestion pipeline, and pushes
// presence updates naming the active persona.
package room

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	sessionService "github.com/careline/voicedesk/internal/session"
)

// inboundMessage is a JSON control frame from the client. Binary frames
// between stream_open and stream_close carry the chunks themselves.
type inboundMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Name  string `json:"name,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Gateway upgrades room connections and bridges them to the session layer.
type Gateway struct {
	hub      *Hub
	manager  *sessionService.Manager
	topic    string
	upgrader websocket.Upgrader
}

// NewGateway creates a gateway accepting byte streams under the given
// topic.
func NewGateway(hub *Hub, manager *sessionService.Manager, topic string) *Gateway {
	return &Gateway{
		hub:     hub,
		manager: manager,
		topic:   topic,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the room websocket route.
func (g *Gateway) RegisterRoutes(r chi.Router) {
	r.Get("/rooms/{sessionID}/ws", g.handleRoom)
}

func (g *Gateway) handleRoom(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	st, err := g.manager.GetSession(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	identity := r.URL.Query().Get("identity")
	if identity == "" {
		identity = "participant"
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[room] upgrade failed for session=%s: %v", sessionID, err)
		return
	}

	g.hub.add(sessionID, conn)
	defer func() {
		g.hub.remove(sessionID, conn)
		conn.Close()
	}()

	g.hub.sendTo(conn, outgoingMessage{
		Type:      "agent",
		SessionID: sessionID,
		Data:      map[string]string{"agent": st.Current().Name},
		Timestamp: time.Now().UnixMilli(),
	})

	g.readLoop(st, conn, identity)
}

// readLoop multiplexes control and binary frames. At most one byte stream
// is open per connection; chunks received outside an open stream are
// dropped.
func (g *Gateway) readLoop(st *sessionService.State, conn *websocket.Conn, identity string) {
	var current *byteStream
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			// A drop mid-stream fails only that stream's ingestion unit.
			if current != nil {
				current.finish(err)
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[room] connection closed for session=%s: %v", st.ID(), err)
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			var msg inboundMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("[room] malformed control frame from %s: %v", identity, err)
				continue
			}
			current = g.handleControl(st, current, msg, identity)
		case websocket.BinaryMessage:
			if current == nil {
				log.Printf("[room] dropping %d-byte chunk outside an open stream from %s", len(data), identity)
				continue
			}
			if !current.push(data) {
				log.Printf("[room] session=%s ended, discarding open stream from %s", st.ID(), identity)
				current.finish(context.Canceled)
				current = nil
			}
		}
	}
}

func (g *Gateway) handleControl(st *sessionService.State, current *byteStream, msg inboundMessage, identity string) *byteStream {
	switch msg.Type {
	case "stream_open":
		if current != nil {
			current.finish(nil)
		}
		if msg.Topic != g.topic {
			log.Printf("[room] ignoring stream on topic %q from %s", msg.Topic, identity)
			return nil
		}
		stream := newByteStream(st.Pipeline().Done())
		st.Pipeline().OnStreamOpened(stream, identity)
		log.Printf("[room] stream %q opened by %s on session=%s", msg.Name, identity, st.ID())
		return stream
	case "stream_close":
		if current != nil {
			current.finish(nil)
		}
		return nil
	default:
		log.Printf("[room] unknown control frame type %q from %s", msg.Type, identity)
		return current
	}
}
