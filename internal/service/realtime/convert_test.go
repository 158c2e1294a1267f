package realtime_test

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careline/voicedesk/internal/model/chat"
	"github.com/careline/voicedesk/internal/service/realtime"
)

func TestToSchemaMessagesRoles(t *testing.T) {
	items := []chat.Item{
		chat.NewTextItem(chat.RoleSystem, "You are the Triage Assistant."),
		chat.NewTextItem(chat.RoleUser, "hi"),
		chat.NewTextItem(chat.RoleAssistant, "hello"),
	}

	got := realtime.ToSchemaMessages(items)
	require.Len(t, got, 3)
	assert.Equal(t, schema.System, got[0].Role)
	assert.Equal(t, "You are the Triage Assistant.", got[0].Content)
	assert.Equal(t, schema.User, got[1].Role)
	assert.Equal(t, schema.Assistant, got[2].Role)
}

func TestToSchemaMessagesToolCalls(t *testing.T) {
	call := chat.NewFunctionCall("transfer_to_billing", "{}")
	items := []chat.Item{
		call,
		chat.NewFunctionCallOutput(call.CallID, "transferred to billing"),
	}

	got := realtime.ToSchemaMessages(items)
	require.Len(t, got, 2)

	require.Len(t, got[0].ToolCalls, 1)
	assert.Equal(t, schema.Assistant, got[0].Role)
	assert.Equal(t, call.CallID, got[0].ToolCalls[0].ID)
	assert.Equal(t, "transfer_to_billing", got[0].ToolCalls[0].Function.Name)

	assert.Equal(t, schema.Tool, got[1].Role)
	assert.Equal(t, call.CallID, got[1].ToolCallID)
	assert.Equal(t, "transferred to billing", got[1].Content)
}

func TestToSchemaMessagesDropsUnansweredToolCalls(t *testing.T) {
	// The incoming persona's log after a handoff: carried context ends with
	// the transfer call, whose output stayed on the outgoing persona.
	call := chat.NewFunctionCall("transfer_to_support", "{}")
	items := []chat.Item{
		chat.NewTextItem(chat.RoleUser, "my bill is wrong"),
		call,
		chat.NewTextItem(chat.RoleSystem, "You are the Support Specialist."),
	}

	got := realtime.ToSchemaMessages(items)
	require.Len(t, got, 2)
	for _, msg := range got {
		assert.Empty(t, msg.ToolCalls)
	}
	assert.Equal(t, schema.User, got[0].Role)
	assert.Equal(t, schema.System, got[1].Role)
}

func TestToSchemaMessagesDropsOrphanToolOutputs(t *testing.T) {
	items := []chat.Item{
		chat.NewFunctionCallOutput("call-without-a-call", "transferred to billing"),
		chat.NewTextItem(chat.RoleUser, "hello"),
	}

	got := realtime.ToSchemaMessages(items)
	require.Len(t, got, 1)
	assert.Equal(t, schema.User, got[0].Role)
}

func TestToSchemaMessagesImageParts(t *testing.T) {
	item := chat.NewImageItem(chat.RoleUser, chat.NewImagePart([]byte("png-bytes"), "image/png"))

	got := realtime.ToSchemaMessages([]chat.Item{item})
	require.Len(t, got, 1)
	require.Len(t, got[0].MultiContent, 1)

	part := got[0].MultiContent[0]
	assert.Equal(t, schema.ChatMessagePartTypeImageURL, part.Type)
	require.NotNil(t, part.ImageURL)
	assert.Equal(t, "image/png", part.ImageURL.MIMEType)
	assert.Contains(t, part.ImageURL.URL, "data:image/png;base64,")
}

func TestToSchemaMessagesMixedParts(t *testing.T) {
	item := chat.Item{
		ID:   "mixed",
		Type: chat.ItemMessage,
		Role: chat.RoleUser,
		Content: []chat.ContentPart{
			{Type: chat.PartText, Text: "what is this rash?"},
			{Type: chat.PartImage, Image: &chat.ImagePart{DataURL: "data:image/png;base64,AA==", MIMEType: "image/png"}},
		},
	}

	got := realtime.ToSchemaMessages([]chat.Item{item})
	require.Len(t, got, 1)
	require.Len(t, got[0].MultiContent, 2)
	assert.Equal(t, schema.ChatMessagePartTypeText, got[0].MultiContent[0].Type)
	assert.Equal(t, "what is this rash?", got[0].MultiContent[0].Text)
	assert.Equal(t, schema.ChatMessagePartTypeImageURL, got[0].MultiContent[1].Type)
}
