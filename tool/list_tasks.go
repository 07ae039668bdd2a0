package tool

import (
	"context"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/provider"
)

// ListTasks lists the tasks of the conversation's project, optionally
// filtered by status.
type ListTasks struct {
	tasks    core.TaskStore
	projects core.ProjectStore
}

// NewListTasks constructs the list_tasks tool.
func NewListTasks(tasks core.TaskStore, projects core.ProjectStore) *ListTasks {
	return &ListTasks{tasks: tasks, projects: projects}
}

// Definition implements Tool.
func (t *ListTasks) Definition() provider.ToolDef {
	return provider.ToolDef{
		Name:        "list_tasks",
		Description: "List the project tasks",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type":        "string",
					"description": "Filter by task status",
					"enum":        []string{"backlog", "running", "done"},
				},
			},
		},
	}
}

// Execute implements Tool.
func (t *ListTasks) Execute(_ context.Context, conversation *core.Conversation, input map[string]any) (any, error) {
	project, err := resolveProject(t.projects, conversation)
	if err != nil {
		return nil, err
	}

	status := core.TaskStatus(stringInput(input, "status"))
	tasks := make([]*core.Task, 0, len(project.Tasks))
	for _, id := range project.Tasks {
		task, err := t.tasks.GetByID(id)
		if err != nil || task == nil {
			continue
		}
		if status != "" && task.Status != status {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
