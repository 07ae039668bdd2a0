package core

// Conversation is a handle to an ordered exchange of messages. The message
// bodies and their ordering live with the message store and are fetched on
// demand; the conversation tracks ownership.
//
// A conversation always belongs to exactly one project. TaskID and
// AssistantID are optional back-references.
type Conversation struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	TaskID      string `json:"taskId,omitempty"`
	AssistantID string `json:"assistantId,omitempty"`
	Title       string `json:"title,omitempty"`
	// ReferencesInjected marks that task file references were already
	// rendered into the system message, making injection a one-shot.
	ReferencesInjected bool `json:"referencesInjected,omitempty"`
}

// TaskStatus enumerates the task lifecycle states.
type TaskStatus string

const (
	// TaskStatusBacklog is the initial and the stopped state.
	TaskStatusBacklog TaskStatus = "backlog"
	// TaskStatusRunning marks a task with an in-flight agent run.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusDone marks a completed task.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusArchived marks a task removed from the project's active list.
	TaskStatusArchived TaskStatus = "archived"
)

// Task is a persisted unit of work that can be turned into a live
// conversation run.
type Task struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"projectId"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         TaskStatus `json:"status"`
	ConversationID string     `json:"conversationId,omitempty"`
	AssistantID    string     `json:"assistantId,omitempty"`
	// References are project-relative file paths injected into the task's
	// system message before the first model turn.
	References []string `json:"references,omitempty"`
}

// Project owns tasks and conversations and anchors tool file operations at
// its filesystem path.
type Project struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	Tasks         []string `json:"tasks,omitempty"`
	Conversations []string `json:"conversations,omitempty"`
}

// Assistant selects the provider and model used for a conversation.
type Assistant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}
