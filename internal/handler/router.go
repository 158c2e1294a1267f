package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	personaHandler "github.com/careline/voicedesk/internal/handler/persona"
	"github.com/careline/voicedesk/internal/handler/room"
	sessionHandler "github.com/careline/voicedesk/internal/handler/session"
	"github.com/careline/voicedesk/internal/handler/stream"
	middlewarePkg "github.com/careline/voicedesk/internal/middleware"
	personaModel "github.com/careline/voicedesk/internal/model/persona"
	"github.com/careline/voicedesk/internal/service/realtime"
	sessionService "github.com/careline/voicedesk/internal/session"
	"github.com/careline/voicedesk/pkg/utils"
)

// NewRouter wires HTTP routes to the session core. The engine may be nil
// when model credentials are absent; reply streaming is then unavailable
// while session management and ingestion keep working.
func NewRouter(personas personaModel.Store, manager *sessionService.Manager, engine *realtime.Engine, gateway *room.Gateway) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	var streamHandler *stream.Handler
	if engine != nil {
		streamHandler = stream.New(engine, manager)
	}

	r.Route("/api", func(api chi.Router) {
		personaHandler.New(personas).RegisterRoutes(api)
		sessionHandler.New(manager).RegisterRoutes(api)
		gateway.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if streamHandler == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "reply streaming unavailable")
				return
			}
			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
