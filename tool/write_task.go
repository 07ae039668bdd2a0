package tool

import (
	"context"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/provider"
)

// WriteTask adds or updates a task of the conversation's project.
type WriteTask struct {
	tasks core.TaskStore
}

// NewWriteTask constructs the write_task tool.
func NewWriteTask(tasks core.TaskStore) *WriteTask {
	return &WriteTask{tasks: tasks}
}

// Definition implements Tool.
func (t *WriteTask) Definition() provider.ToolDef {
	return provider.ToolDef{
		Name:        "write_task",
		Description: "Add or update a project task",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "Task id (required for updates)",
				},
				"title": map[string]any{
					"type":        "string",
					"description": "Task title (required for creation)",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Detailed task description",
				},
				"appendDescription": map[string]any{
					"type":        "string",
					"description": "Text appended to the current task description",
				},
				"status": map[string]any{
					"type":        "string",
					"description": "Task status",
					"enum":        []string{"backlog", "running", "done"},
				},
			},
		},
	}
}

// Execute implements Tool. An input carrying an id updates the referenced
// task; otherwise a new task is created in the conversation's project.
func (t *WriteTask) Execute(_ context.Context, conversation *core.Conversation, input map[string]any) (any, error) {
	if stringInput(input, "id") != "" {
		return t.update(input)
	}
	return t.create(conversation, input)
}

func (t *WriteTask) update(input map[string]any) (any, error) {
	id := stringInput(input, "id")
	task, err := t.tasks.GetByID(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, core.NewNotFoundError("task", id)
	}

	if title := stringInput(input, "title"); title != "" {
		task.Title = title
	}
	if description := stringInput(input, "description"); description != "" {
		task.Description = description
	}
	if appended := stringInput(input, "appendDescription"); appended != "" {
		task.Description += appended
	}
	if status := stringInput(input, "status"); status != "" {
		task.Status = core.TaskStatus(status)
	}

	return t.tasks.Update(id, task)
}

func (t *WriteTask) create(conversation *core.Conversation, input map[string]any) (any, error) {
	title := stringInput(input, "title")
	if title == "" {
		return nil, NewError("write_task", "field 'title' is required to create a task")
	}

	status := core.TaskStatus(stringInput(input, "status"))
	if status == "" {
		status = core.TaskStatusBacklog
	}

	return t.tasks.Create(&core.Task{
		ID:          core.NewID(),
		ProjectID:   conversation.ProjectID,
		Title:       title,
		Description: stringInput(input, "description") + stringInput(input, "appendDescription"),
		Status:      status,
	})
}
