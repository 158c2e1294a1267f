package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"

	"github.com/careline/voicedesk/internal/model/chat"
	"github.com/careline/voicedesk/internal/service/realtime"
	sessionService "github.com/careline/voicedesk/internal/session"
	"github.com/careline/voicedesk/pkg/utils"
)

// Handler streams persona replies over Server-Sent Events.
type Handler struct {
	engine  *realtime.Engine
	manager *sessionService.Manager
}

// New creates the stream handler.
func New(engine *realtime.Engine, manager *sessionService.Manager) *Handler {
	return &Handler{engine: engine, manager: manager}
}

// Response is one streamed SSE frame.
type Response struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Persona   string `json:"persona,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest generates a reply to userMessage from the active
// persona and streams it to the client.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	st, err := h.manager.GetSession(sessionID)
	if err != nil {
		h.sendError(w, flusher, "session not found")
		return err
	}

	active := st.Current()
	utils.SetupSSEHeaders(w)
	h.send(w, flusher, Response{
		Event:     "start",
		SessionID: sessionID,
		Persona:   active.Name,
	})

	var response *schema.Message
	if h.engine.StreamingEnabled() {
		response, err = h.streamReply(ctx, w, flusher, st, sessionID, userMessage)
	} else {
		response, err = h.engine.Reply(ctx, st, userMessage)
		if err == nil {
			h.send(w, flusher, Response{
				Event:     "message",
				SessionID: sessionID,
				Content:   response.Content,
			})
		}
	}
	if err != nil {
		h.sendError(w, flusher, fmt.Sprintf("reply generation failed: %v", err))
		return err
	}

	h.send(w, flusher, Response{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed reply for session=%s persona=%s", sessionID, active.Name)
	return nil
}

// streamReply forwards chunks as they arrive and persists both turns once
// the stream is fully consumed.
func (h *Handler) streamReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, st *sessionService.State, sessionID, userMessage string) (*schema.Message, error) {
	reader, err := h.engine.StreamReply(ctx, st, userMessage)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := reader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.send(w, flusher, Response{
				Event:     "delta",
				SessionID: sessionID,
				Content:   chunk.Content,
			})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, err
	}

	st.AppendToCurrent(
		chat.NewTextItem(chat.RoleUser, userMessage),
		chat.NewTextItem(chat.RoleAssistant, response.Content),
	)
	h.send(w, flusher, Response{
		Event:     "message",
		SessionID: sessionID,
		Content:   response.Content,
	})
	return response, nil
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, response Response) {
	utils.SendSSEChunk(w, flusher, response)
}

func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.send(w, flusher, Response{Event: "error", Error: errorMsg})
}
