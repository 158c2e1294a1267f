package session

import (
	"context"
	"fmt"
	"log"

	"github.com/careline/voicedesk/internal/model/chat"
	"github.com/careline/voicedesk/internal/model/persona"
)

// UnknownPersonaError reports a transfer to a name absent from the session
// registry. It indicates a configuration defect and always propagates to
// whatever invoked the transfer.
type UnknownPersonaError struct {
	Name string
}

func (e *UnknownPersonaError) Error() string {
	return fmt.Sprintf("unknown persona %q", e.Name)
}

// Presence is the session-visible side channel naming the active persona.
// Implementations broadcast it to UI and observability consumers.
type Presence interface {
	SetActivePersona(sessionID, personaName string)
}

// ReplyEngine is the response-generation collaborator. Greet asks it to
// produce an opening reply for the active persona from the current context.
type ReplyEngine interface {
	Greet(ctx context.Context, st *State) error
}

// Controller executes persona handoffs: it swaps the active persona,
// merges carried-over context into it, announces the change and signals a
// greeting.
type Controller struct {
	presence Presence
	replies  ReplyEngine
}

// NewController wires a controller to its collaborators; either may be nil
// when the corresponding surface is not running (tests, degraded boot).
func NewController(presence Presence, replies ReplyEngine) *Controller {
	return &Controller{presence: presence, replies: replies}
}

// Transfer hands the session off to the named persona. On an unknown name
// it fails with UnknownPersonaError and leaves the session untouched;
// otherwise the previous/current swap, the context merge and the
// announcement are applied atomically with respect to other state readers.
func (c *Controller) Transfer(ctx context.Context, st *State, target string, opts chat.TruncateOptions) (persona.Persona, error) {
	st.mu.Lock()
	next, ok := st.registry[target]
	if !ok {
		st.mu.Unlock()
		return persona.Persona{}, &UnknownPersonaError{Name: target}
	}

	outgoing := st.current
	st.previous = outgoing
	st.current = target

	carried := chat.Truncate(st.histories[outgoing].Items(), opts)
	incoming := st.histories[target]
	incoming.Append(carried...)
	incoming.Append(announcement(next, st.summary))
	st.mu.Unlock()

	log.Printf("[handoff] session=%s %s -> %s (carried %d items)", st.id, outgoing, target, len(carried))
	c.enter(ctx, st, next)
	return next, nil
}

// Activate runs the enter effects for the entry persona when a session
// starts: announcement, presence and greeting, with no context to carry.
func (c *Controller) Activate(ctx context.Context, st *State) persona.Persona {
	st.mu.Lock()
	entry := st.registry[st.current]
	st.histories[st.current].Append(announcement(entry, st.summary))
	st.mu.Unlock()

	c.enter(ctx, st, entry)
	return entry
}

// enter applies the observable side effects of a persona becoming active.
// Presence is required behavior; a greeting failure is logged and does not
// undo the handoff.
func (c *Controller) enter(ctx context.Context, st *State, p persona.Persona) {
	if c.presence != nil {
		c.presence.SetActivePersona(st.id, p.Name)
	}
	if c.replies != nil {
		if err := c.replies.Greet(ctx, st); err != nil {
			log.Printf("[handoff] greeting failed for session=%s persona=%s: %v", st.id, p.Name, err)
		}
	}
}

func announcement(p persona.Persona, summary string) chat.Item {
	return chat.NewTextItem(chat.RoleSystem, fmt.Sprintf("You are the %s. %s", p.Title, summary))
}
