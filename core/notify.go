package core

// Push-channel event names emitted by the engine. Clients subscribe to
// these to mirror streaming state live.
const (
	EventBlockCreated     = "block-created"
	EventBlockDelta       = "block-delta"
	EventTaskExecuting    = "task-executing"
	EventTaskNotExecuting = "task-not-executing"
)

// Notifier is the fire-and-forget push-notification channel. Emit must
// never block the caller; slow or absent consumers are the transport's
// problem, not the engine's.
type Notifier interface {
	Emit(event string, payload any)
}

// BlockCreatedPayload announces a freshly opened block on a streaming
// message.
type BlockCreatedPayload struct {
	ID        string    `json:"id"`
	MessageID string    `json:"messageId"`
	Type      BlockType `json:"type"`
	Tool      string    `json:"tool,omitempty"`
	ToolUseID string    `json:"toolUseId,omitempty"`
}

// BlockDeltaPayload carries an incremental content fragment for an open
// block.
type BlockDeltaPayload struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	Delta     string `json:"delta"`
}

// TaskExecutionPayload announces a task entering or leaving the execution
// registry.
type TaskExecutionPayload struct {
	TaskID string `json:"taskId"`
}

// NoOpNotifier discards all notifications. Useful for tests or when no
// client is attached.
type NoOpNotifier struct{}

// Emit implements Notifier.
func (NoOpNotifier) Emit(string, any) {}
