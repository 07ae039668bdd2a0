// Package tool implements the function-calling capabilities the model can
// invoke mid-turn: project file listing, file reads and writes, and task
// management. Tools declare a provider-neutral JSON-schema definition and
// execute side effects against the project and task collaborators.
package tool

import (
	"context"
	"fmt"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/provider"
)

// Tool is a single capability exposed to the model.
//
// Execute may return an error; the dispatcher converts it into an
// error-flagged tool result rather than letting it abort the turn, so tools
// should fail loudly instead of swallowing problems. Implementations must
// be safe for concurrent use: all tool_use blocks of one model turn are
// dispatched concurrently.
type Tool interface {
	// Definition returns the provider-neutral schema advertised to models.
	Definition() provider.ToolDef

	// Execute runs the tool against the conversation's project scope.
	Execute(ctx context.Context, conversation *core.Conversation, input map[string]any) (any, error)
}

// Error reports a tool execution failure with enough context for the model
// to retry or adjust.
type Error struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewError creates a tool Error.
func NewError(tool, message string) *Error {
	return &Error{Tool: tool, Message: message}
}

// resolveProject loads the project a conversation belongs to. Every file
// tool anchors its paths at the project directory.
func resolveProject(projects core.ProjectStore, conversation *core.Conversation) (*core.Project, error) {
	project, err := projects.GetByID(conversation.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, core.NewNotFoundError("project", conversation.ProjectID)
	}
	return project, nil
}

func stringInput(input map[string]any, key string) string {
	s, _ := input[key].(string)
	return s
}
