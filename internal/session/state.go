// Package session owns the live-call state shared by every collaborator:
// the persona registry, the per-persona conversation histories, the
// current/previous persona references and the image ingestion pipeline.
package session

import (
	"sync"
	"time"

	"github.com/careline/voicedesk/internal/ingest"
	"github.com/careline/voicedesk/internal/model/chat"
	"github.com/careline/voicedesk/internal/model/persona"
)

// State is the process-lifetime session structure, one per live call.
// Mutations from the handoff path and the ingestion pipeline are serialized
// by an internal mutex; the active persona is always resolved at the moment
// a mutation executes, never earlier.
type State struct {
	mu        sync.Mutex
	id        string
	registry  map[string]persona.Persona
	histories map[string]*chat.History
	current   string
	previous  string
	summary   string
	createdAt time.Time

	pipeline *ingest.Pipeline
	cancel   func()
}

// Info is the externally visible snapshot of a session.
type Info struct {
	ID                string    `json:"id"`
	Current           string    `json:"current"`
	Previous          string    `json:"previous,omitempty"`
	PendingIngestions int       `json:"pendingIngestions"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ID returns the session identifier.
func (s *State) ID() string {
	return s.id
}

// Current returns the active persona, the single locus of response
// generation.
func (s *State) Current() persona.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry[s.current]
}

// Previous returns the persona that most recently handed off, if any.
func (s *State) Previous() (persona.Persona, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previous == "" {
		return persona.Persona{}, false
	}
	p, ok := s.registry[s.previous]
	return p, ok
}

// Summary returns the one-line session description used in handoff
// announcements.
func (s *State) Summary() string {
	return s.summary
}

// Info snapshots the session for API responses.
func (s *State) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:                s.id,
		Current:           s.current,
		Previous:          s.previous,
		PendingIngestions: s.pipeline.Pending(),
		CreatedAt:         s.createdAt,
	}
}

// AppendToCurrent appends items to the history of whichever persona is
// active at call time. This is the append path used by the ingestion
// pipeline, so a stream opened under one persona may land on a later one
// if a handoff happened mid-read; that interleaving is deliberate.
func (s *State) AppendToCurrent(items ...chat.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[s.current].Append(items...)
}

// AppendTo appends items to the named persona's history. It reports false
// when the persona is not in the registry.
func (s *State) AppendTo(name string, items ...chat.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[name]
	if !ok {
		return false
	}
	h.Append(items...)
	return true
}

// CurrentItems snapshots the active persona's conversation log.
func (s *State) CurrentItems() []chat.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.histories[s.current].Items()
}

// ItemsOf snapshots the named persona's conversation log.
func (s *State) ItemsOf(name string) ([]chat.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[name]
	if !ok {
		return nil, false
	}
	return h.Items(), true
}

// Pipeline returns the session's image ingestion pipeline.
func (s *State) Pipeline() *ingest.Pipeline {
	return s.pipeline
}
