package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	sessionService "github.com/careline/voicedesk/internal/session"
	"github.com/careline/voicedesk/pkg/utils"
)

// Handler exposes session lifecycle and the tool-invocation boundary over
// HTTP.
type Handler struct {
	manager *sessionService.Manager
}

// New creates the session handler.
func New(manager *sessionService.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes mounts session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleEndSession)
	r.Get("/sessions/{sessionID}/history", h.handleGetHistory)
	r.Get("/sessions/{sessionID}/tools", h.handleListTools)
	r.Post("/sessions/{sessionID}/tools/{tool}", h.handleInvokeTool)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.manager.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, st.Info())
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.manager.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, st.Info())
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.EndSession(chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// handleGetHistory returns the active persona's conversation log, or a
// named persona's log when the persona query parameter is set.
func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	st, err := h.manager.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	if name := r.URL.Query().Get("persona"); name != "" {
		items, ok := st.ItemsOf(name)
		if !ok {
			utils.RespondError(w, http.StatusNotFound, "persona not found")
			return
		}
		utils.RespondJSON(w, http.StatusOK, items)
		return
	}

	utils.RespondJSON(w, http.StatusOK, st.CurrentItems())
}

func (h *Handler) handleListTools(w http.ResponseWriter, r *http.Request) {
	st, err := h.manager.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	table := sessionService.ToolTableFor(st.Current())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"persona": st.Current().Name,
		"tools":   table.Tools(),
	})
}

// handleInvokeTool dispatches a transfer operation issued on behalf of the
// active persona. Capability violations surface as 422; an unknown target
// persona is a configuration defect and surfaces as 500.
func (h *Handler) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	tool := chi.URLParam(r, "tool")

	next, err := h.manager.InvokeTool(r.Context(), sessionID, tool)
	if err != nil {
		var unknown *sessionService.UnknownPersonaError
		switch {
		case errors.Is(err, sessionService.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, sessionService.ErrToolNotAllowed):
			utils.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &unknown):
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		default:
			utils.RespondError(w, http.StatusInternalServerError, "transfer failed")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"active": next.Name,
		"title":  next.Title,
	})
}
