package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/careline/voicedesk/internal/config"
	"github.com/careline/voicedesk/internal/handler"
	"github.com/careline/voicedesk/internal/handler/room"
	"github.com/careline/voicedesk/internal/model/persona"
	"github.com/careline/voicedesk/internal/service/prompts"
	"github.com/careline/voicedesk/internal/service/realtime"
	"github.com/careline/voicedesk/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	personaStore := persona.NewMemoryStore(persona.Seed())

	var promptSource prompts.Source = prompts.Defaults()
	if cfg.Session.PromptsDir != "" {
		promptSource = prompts.NewDirSource(cfg.Session.PromptsDir)
		log.Printf("loading persona prompts from %s", cfg.Session.PromptsDir)
	}

	var engine *realtime.Engine
	if cfg.Model.Enabled() {
		engine, err = realtime.NewEngine(ctx, cfg.Model)
		if err != nil {
			log.Printf("warning: failed to initialize reply engine: %v", err)
			log.Println("continuing without reply generation - check the ARK model environment variables")
			engine = nil
		} else {
			log.Println("reply engine initialized successfully")
		}
	} else {
		log.Println("model credentials not configured, skipping reply generation")
	}

	hub := room.NewHub()

	var replies session.ReplyEngine
	if engine != nil {
		replies = engine
	}
	controller := session.NewController(hub, replies)
	manager := session.NewManager(personaStore, promptSource, controller, cfg.Session)

	gateway := room.NewGateway(hub, manager, cfg.Session.StreamTopic)
	router := handler.NewRouter(personaStore, manager, engine, gateway)

	startServer(ctx, cfg.Server, router, manager)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, manager *session.Manager) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("voicedesk agent listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv, manager); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server, manager *session.Manager) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		manager.Shutdown(shutdownCtx)
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
