// Package realtime implements the response-generation collaborator on top
// of an eino chat model: persona instructions become the system prompt and
// the active persona's conversation log, images included, becomes the model
// context.
package realtime

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/careline/voicedesk/internal/config"
	"github.com/careline/voicedesk/internal/model/chat"
	"github.com/careline/voicedesk/internal/session"
)

// greetingInstruction is the fixed request issued when a persona becomes
// active.
const greetingInstruction = "Briefly greet the user and offer your assistance. Use the existing chat context to guide your response."

// Engine generates replies for the active persona.
type Engine struct {
	chatModel model.ChatModel
	cfg       config.ModelConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewEngine builds the reply chain from the configured chat model.
func NewEngine(ctx context.Context, cfg config.ModelConfig) (*Engine, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile reply chain: %w", err)
	}

	return &Engine{chatModel: chatModel, cfg: cfg, chain: runnable}, nil
}

// StreamingEnabled indicates whether replies should be streamed to clients.
func (e *Engine) StreamingEnabled() bool {
	return e.cfg.StreamResponse
}

// Greet produces the opening reply after a persona becomes active and
// appends it to the active history. Implements session.ReplyEngine.
func (e *Engine) Greet(ctx context.Context, st *session.State) error {
	p := st.Current()
	response, err := e.chain.Invoke(ctx, e.chainInput(p.Instructions, st.CurrentItems(), greetingInstruction))
	if err != nil {
		return fmt.Errorf("generate greeting: %w", err)
	}

	st.AppendToCurrent(chat.NewTextItem(chat.RoleAssistant, response.Content))
	log.Printf("[realtime] greeting generated for session=%s persona=%s", st.ID(), p.Name)
	return nil
}

// Reply generates one assistant turn for the user message and records both
// turns on the active history.
func (e *Engine) Reply(ctx context.Context, st *session.State, userMessage string) (*schema.Message, error) {
	p := st.Current()
	response, err := e.chain.Invoke(ctx, e.chainInput(p.Instructions, st.CurrentItems(), userMessage))
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	st.AppendToCurrent(
		chat.NewTextItem(chat.RoleUser, userMessage),
		chat.NewTextItem(chat.RoleAssistant, response.Content),
	)
	log.Printf("[realtime] reply generated for session=%s persona=%s length=%d", st.ID(), p.Name, len(response.Content))
	return response, nil
}

// StreamReply streams reply chunks for the user message. The caller owns
// persisting the turns once the stream is concatenated.
func (e *Engine) StreamReply(ctx context.Context, st *session.State, userMessage string) (*schema.StreamReader[*schema.Message], error) {
	if !e.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	p := st.Current()
	stream, err := e.chain.Stream(ctx, e.chainInput(p.Instructions, st.CurrentItems(), userMessage))
	if err != nil {
		return nil, fmt.Errorf("stream reply: %w", err)
	}
	return stream, nil
}

func (e *Engine) chainInput(instructions string, items []chat.Item, query string) map[string]any {
	return map[string]any{
		"system":  instructions,
		"history": ToSchemaMessages(items),
		"query":   query,
	}
}
