package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careline/voicedesk/internal/config"
	"github.com/careline/voicedesk/internal/ingest"
	"github.com/careline/voicedesk/internal/model/chat"
	"github.com/careline/voicedesk/internal/model/persona"
	"github.com/careline/voicedesk/internal/service/prompts"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrToolNotAllowed  = errors.New("tool not allowed for active persona")
)

// Manager owns the live sessions of the process and the policy they share:
// entry persona, handoff truncation policy and the session summary line.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State

	personas   persona.Store
	prompts    prompts.Source
	controller *Controller
	cfg        config.SessionConfig
}

// NewManager bootstraps the in-memory session manager.
func NewManager(personas persona.Store, src prompts.Source, controller *Controller, cfg config.SessionConfig) *Manager {
	return &Manager{
		sessions:   make(map[string]*State),
		personas:   personas,
		prompts:    src,
		controller: controller,
		cfg:        cfg,
	}
}

// Policy returns the truncation policy applied at handoffs.
func (m *Manager) Policy() chat.TruncateOptions {
	return chat.TruncateOptions{
		KeepLast:           m.cfg.KeepLastItems,
		KeepSystemMessages: m.cfg.KeepSystemMessages,
		KeepFunctionItems:  m.cfg.KeepFunctionItems,
	}
}

// CreateSession provisions a session with the full persona registry, the
// configured entry persona active, and a fresh ingestion pipeline. The
// entry persona's enter effects (announcement, presence, greeting) run
// before the session is returned.
func (m *Manager) CreateSession(ctx context.Context) (*State, error) {
	registry := make(map[string]persona.Persona)
	histories := make(map[string]*chat.History)
	for _, p := range m.personas.List() {
		instructions, err := m.prompts.Load(p.PromptName)
		if err != nil {
			return nil, fmt.Errorf("load instructions for persona %s: %w", p.Name, err)
		}
		p.Instructions = instructions
		registry[p.Name] = p
		histories[p.Name] = chat.NewHistory()
	}

	if _, ok := registry[m.cfg.EntryPersona]; !ok {
		return nil, &UnknownPersonaError{Name: m.cfg.EntryPersona}
	}

	st := &State{
		id:        uuid.NewString(),
		registry:  registry,
		histories: histories,
		current:   m.cfg.EntryPersona,
		summary:   m.cfg.Summary,
		createdAt: time.Now().UTC(),
	}

	ingestCtx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	st.pipeline = ingest.New(ingestCtx, st)

	m.mu.Lock()
	m.sessions[st.id] = st
	m.mu.Unlock()

	m.controller.Activate(ctx, st)
	log.Printf("[session] created session=%s entry=%s", st.id, m.cfg.EntryPersona)
	return st, nil
}

// GetSession retrieves a live session by identifier.
func (m *Manager) GetSession(id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

// EndSession removes the session and abandons its in-flight ingestion
// units. Abandonment is best-effort; callers that need the units drained
// use Pipeline().Wait first.
func (m *Manager) EndSession(id string) error {
	m.mu.Lock()
	st, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	st.cancel()
	log.Printf("[session] ended session=%s", id)
	return nil
}

// InvokeTool is the tool-invocation boundary. It resolves the named
// transfer operation against the active persona's tool table, which is
// where the capability set is enforced, then records the function call in
// the outgoing history and executes the handoff.
func (m *Manager) InvokeTool(ctx context.Context, sessionID, tool string) (persona.Persona, error) {
	st, err := m.GetSession(sessionID)
	if err != nil {
		return persona.Persona{}, err
	}

	invoker := st.Current()
	target, ok := ToolTableFor(invoker).Resolve(tool)
	if !ok {
		return persona.Persona{}, fmt.Errorf("%w: %s cannot invoke %q", ErrToolNotAllowed, invoker.Name, tool)
	}

	call := chat.NewFunctionCall(tool, "{}")
	st.AppendTo(invoker.Name, call)

	next, err := m.controller.Transfer(ctx, st, target, m.Policy())
	if err != nil {
		// The transfer mutated nothing; close out the call record on the
		// still-active persona and surface the defect.
		st.AppendTo(invoker.Name, chat.NewFunctionCallOutput(call.CallID, "error: "+err.Error()))
		return persona.Persona{}, err
	}

	st.AppendTo(invoker.Name, chat.NewFunctionCallOutput(call.CallID, fmt.Sprintf("transferred to %s", next.Name)))
	return next, nil
}

// Shutdown drains every session's ingestion pipeline best-effort within
// ctx, then abandons the rest.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	states := make([]*State, 0, len(m.sessions))
	for id, st := range m.sessions {
		states = append(states, st)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, st := range states {
		if err := st.pipeline.Wait(ctx); err != nil {
			log.Printf("[session] abandoning in-flight ingestion for session=%s: %v", st.id, err)
		}
		st.cancel()
	}
}
