package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Sender identifies the author role of a message within a conversation.
type Sender string

const (
	// SenderUser is a human-authored message.
	SenderUser Sender = "user"
	// SenderAssistant is a model-authored message.
	SenderAssistant Sender = "assistant"
	// SenderSystem is the conversation's system prompt message.
	SenderSystem Sender = "system"
	// SenderUserSystem is a synthesized prompt sent with the user role.
	SenderUserSystem Sender = "user_system"
	// SenderTool carries tool results back to the model.
	SenderTool Sender = "tool"
	// SenderLog is operator-visible only and never sent to a provider.
	SenderLog Sender = "log"
)

// BlockType identifies the kind of content a block holds.
type BlockType string

const (
	// BlockTypeText is plain model output text.
	BlockTypeText BlockType = "text"
	// BlockTypeToolUse is a tool invocation requested by the model.
	BlockTypeToolUse BlockType = "tool_use"
	// BlockTypeToolResult is the outcome of a tool invocation.
	BlockTypeToolResult BlockType = "tool_result"
)

// Block is the smallest unit of model output or tool result within a
// message. While a tool_use block is streaming its Content is the
// accumulating JSON fragment string; once the block closes the fragment is
// parsed into an object (blank input defaults to an empty object).
type Block struct {
	ID        string    `json:"id"`
	MessageID string    `json:"messageId"`
	Type      BlockType `json:"type"`
	Content   any       `json:"content"`
	Tool      string    `json:"tool,omitempty"`
	ToolUseID string    `json:"toolUseId,omitempty"`
	IsError   bool      `json:"isError,omitempty"`
}

// AppendContent appends a streaming delta to the block's string content.
func (b *Block) AppendContent(delta string) {
	s, _ := b.Content.(string)
	b.Content = s + delta
}

// ContentText returns the block content as a string, serializing non-string
// payloads to JSON. Used when mapping blocks into provider wire formats.
func (b *Block) ContentText() string {
	if s, ok := b.Content.(string); ok {
		return s
	}
	raw, err := json.Marshal(b.Content)
	if err != nil {
		return ""
	}
	return string(raw)
}

// CloseToolUse parses the accumulated JSON fragment of a tool_use block into
// a structured object. Blank or whitespace-only content closes as an empty
// object rather than an empty string.
func (b *Block) CloseToolUse() error {
	if b.Type != BlockTypeToolUse {
		return nil
	}
	raw, _ := b.Content.(string)
	if isBlank(raw) {
		b.Content = map[string]any{}
		return nil
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return err
	}
	b.Content = parsed
	return nil
}

// InputObject returns a closed tool_use block's parsed input, or an empty
// object when the block never accumulated content.
func (b *Block) InputObject() map[string]any {
	if m, ok := b.Content.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// Message is an ordered sequence of blocks authored by one sender. Blocks
// are mutable while the message streams and immutable once it is finalized.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         Sender    `json:"sender"`
	Blocks         []Block   `json:"blocks"`
	InputTokens    int64     `json:"inputTokens,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewMessage creates an empty message for a conversation.
func NewMessage(conversationID string, sender Sender) *Message {
	return &Message{
		ID:             NewID(),
		ConversationID: conversationID,
		Sender:         sender,
		CreatedAt:      time.Now().UTC(),
	}
}

// NewTextMessage creates a message holding a single text block.
func NewTextMessage(conversationID string, sender Sender, text string) *Message {
	m := NewMessage(conversationID, sender)
	m.Blocks = append(m.Blocks, Block{
		ID:        NewID(),
		MessageID: m.ID,
		Type:      BlockTypeText,
		Content:   text,
	})
	return m
}

// LastBlock returns a pointer to the most recently appended block, or nil
// for an empty message.
func (m *Message) LastBlock() *Block {
	if len(m.Blocks) == 0 {
		return nil
	}
	return &m.Blocks[len(m.Blocks)-1]
}

// ToolUseBlocks returns the tool_use blocks of the message preserving their
// original order.
func (m *Message) ToolUseBlocks() []Block {
	var calls []Block
	for _, b := range m.Blocks {
		if b.Type == BlockTypeToolUse {
			calls = append(calls, b)
		}
	}
	return calls
}

// HasToolUse reports whether any block in the message is a tool invocation.
// A message mixing tool_use with trailing text still counts.
func (m *Message) HasToolUse() bool {
	return len(m.ToolUseBlocks()) > 0
}

// NewID generates a new unique identifier for messages, blocks and other
// domain entities.
func NewID() string { return uuid.NewString() }
