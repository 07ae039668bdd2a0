package core

import "fmt"

// NotFoundError reports a missing entity. Its message keeps the
// "not found" substring so boundary layers that pattern-match on it keep
// mapping these failures to 404 responses.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

// NewNotFoundError creates a NotFoundError for the given entity kind and id.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// MessageStore persists messages. Implementations must preserve insertion
// order per conversation; the orchestrator relies on it for turn ordering.
type MessageStore interface {
	Create(msg *Message) (*Message, error)

	// Update replaces the stored message. Fails with NotFoundError if absent.
	Update(id string, msg *Message) (*Message, error)

	// GetByConversationID returns the conversation's messages in insertion
	// order.
	GetByConversationID(conversationID string) ([]*Message, error)
}

// ConversationStore persists conversation handles.
type ConversationStore interface {
	GetByID(id string) (*Conversation, error)
	Create(c *Conversation) (*Conversation, error)
	Update(id string, c *Conversation) (*Conversation, error)
}

// TaskStore persists tasks.
type TaskStore interface {
	GetByID(id string) (*Task, error)
	Create(t *Task) (*Task, error)
	Update(id string, t *Task) (*Task, error)
}

// ProjectStore persists projects.
type ProjectStore interface {
	GetByID(id string) (*Project, error)
	Create(p *Project) (*Project, error)
	Update(id string, p *Project) (*Project, error)
}

// AssistantStore persists assistant (provider/model selection) records.
type AssistantStore interface {
	GetByID(id string) (*Assistant, error)
	Create(a *Assistant) (*Assistant, error)
}
