package realtime

import (
	"github.com/cloudwego/eino/schema"

	"github.com/careline/voicedesk/internal/model/chat"
)

// ToSchemaMessages converts conversation items into eino messages.
// Function calls become assistant tool calls, outputs become tool
// messages, and image parts ride along as multi-content image URLs.
// Calls and outputs are only emitted in pairs: a handoff carries the
// call into the incoming persona's log while its output lands on the
// outgoing one, and the model rejects an unanswered tool call.
func ToSchemaMessages(items []chat.Item) []*schema.Message {
	calls := make(map[string]bool)
	outputs := make(map[string]bool)
	for _, it := range items {
		switch it.Type {
		case chat.ItemFunctionCall:
			calls[it.CallID] = true
		case chat.ItemFunctionCallOutput:
			outputs[it.CallID] = true
		}
	}

	out := make([]*schema.Message, 0, len(items))
	for _, it := range items {
		switch it.Type {
		case chat.ItemFunctionCall:
			if !outputs[it.CallID] {
				continue
			}
			out = append(out, &schema.Message{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{{
					ID:   it.CallID,
					Type: "function",
					Function: schema.FunctionCall{
						Name:      it.Name,
						Arguments: it.Arguments,
					},
				}},
			})
		case chat.ItemFunctionCallOutput:
			if !calls[it.CallID] {
				continue
			}
			out = append(out, schema.ToolMessage(it.Output, it.CallID))
		case chat.ItemMessage:
			out = append(out, messageToSchema(it))
		}
	}
	return out
}

func messageToSchema(it chat.Item) *schema.Message {
	var role schema.RoleType
	switch it.Role {
	case chat.RoleSystem:
		role = schema.System
	case chat.RoleAssistant:
		role = schema.Assistant
	default:
		role = schema.User
	}

	if !hasImagePart(it) {
		return &schema.Message{Role: role, Content: it.TextContent()}
	}

	parts := make([]schema.ChatMessagePart, 0, len(it.Content))
	for _, part := range it.Content {
		switch part.Type {
		case chat.PartText:
			parts = append(parts, schema.ChatMessagePart{
				Type: schema.ChatMessagePartTypeText,
				Text: part.Text,
			})
		case chat.PartImage:
			parts = append(parts, schema.ChatMessagePart{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:      part.Image.DataURL,
					MIMEType: part.Image.MIMEType,
				},
			})
		}
	}
	return &schema.Message{Role: role, MultiContent: parts}
}

func hasImagePart(it chat.Item) bool {
	for _, part := range it.Content {
		if part.Type == chat.PartImage {
			return true
		}
	}
	return false
}
