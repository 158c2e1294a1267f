package chat

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message item.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ItemType distinguishes plain messages from function-call records.
type ItemType string

const (
	ItemMessage            ItemType = "message"
	ItemFunctionCall       ItemType = "function_call"
	ItemFunctionCallOutput ItemType = "function_call_output"
)

// PartType tags a content part.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// ImagePart carries an inline image as a data URL.
type ImagePart struct {
	DataURL  string `json:"dataUrl"`
	MIMEType string `json:"mimeType"`
}

// NewImagePart encodes raw image bytes into an inline data URL part.
func NewImagePart(data []byte, mimeType string) ImagePart {
	return ImagePart{
		DataURL:  fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
		MIMEType: mimeType,
	}
}

// ContentPart is one element of an item's content sequence.
type ContentPart struct {
	Type  PartType   `json:"type"`
	Text  string     `json:"text,omitempty"`
	Image *ImagePart `json:"image,omitempty"`
}

// Item is one atomic unit of conversation state. Items are immutable once
// created; identity is the ID.
type Item struct {
	ID        string        `json:"id"`
	Type      ItemType      `json:"type"`
	Role      Role          `json:"role,omitempty"`
	Content   []ContentPart `json:"content,omitempty"`
	Name      string        `json:"name,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	CallID    string        `json:"callId,omitempty"`
	Output    string        `json:"output,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// IsFunction reports whether the item records a function call or its output.
func (it Item) IsFunction() bool {
	return it.Type == ItemFunctionCall || it.Type == ItemFunctionCallOutput
}

// TextContent concatenates the item's text parts.
func (it Item) TextContent() string {
	var out string
	for _, part := range it.Content {
		if part.Type == PartText {
			out += part.Text
		}
	}
	return out
}

// NewTextItem builds a message item with a single text part.
func NewTextItem(role Role, text string) Item {
	return Item{
		ID:        uuid.NewString(),
		Type:      ItemMessage,
		Role:      role,
		Content:   []ContentPart{{Type: PartText, Text: text}},
		CreatedAt: time.Now().UTC(),
	}
}

// NewImageItem builds a message item with a single image part.
func NewImageItem(role Role, image ImagePart) Item {
	return Item{
		ID:        uuid.NewString(),
		Type:      ItemMessage,
		Role:      role,
		Content:   []ContentPart{{Type: PartImage, Image: &image}},
		CreatedAt: time.Now().UTC(),
	}
}

// NewFunctionCall records a tool invocation issued by the assistant.
func NewFunctionCall(name, arguments string) Item {
	return Item{
		ID:        uuid.NewString(),
		Type:      ItemFunctionCall,
		Name:      name,
		Arguments: arguments,
		CallID:    uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// NewFunctionCallOutput records the result of a prior tool invocation.
func NewFunctionCallOutput(callID, output string) Item {
	return Item{
		ID:        uuid.NewString(),
		Type:      ItemFunctionCallOutput,
		CallID:    callID,
		Output:    output,
		CreatedAt: time.Now().UTC(),
	}
}
