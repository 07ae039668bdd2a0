package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/provider"
)

// ReadFile reads the content of a file inside the conversation's project.
type ReadFile struct {
	projects core.ProjectStore
}

// NewReadFile constructs the read_file tool.
func NewReadFile(projects core.ProjectStore) *ReadFile {
	return &ReadFile{projects: projects}
}

// Definition implements Tool.
func (t *ReadFile) Definition() provider.ToolDef {
	return provider.ToolDef{
		Name:        "read_file",
		Description: "Read the content of a project file. Do not read files already available as references.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"file"},
			"properties": map[string]any{
				"file": map[string]any{
					"type":        "string",
					"description": "Project-relative path of the file to read",
				},
			},
		},
	}
}

// FileResult is the outcome payload of read_file and write_file.
type FileResult struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Message string `json:"message"`
}

// Execute implements Tool. A missing file is reported as an unsuccessful
// result rather than an error so the model can recover on its own.
func (t *ReadFile) Execute(_ context.Context, conversation *core.Conversation, input map[string]any) (any, error) {
	project, err := resolveProject(t.projects, conversation)
	if err != nil {
		return nil, err
	}

	file := stringInput(input, "file")
	content, err := os.ReadFile(filepath.Join(project.Path, file))
	if err != nil {
		if os.IsNotExist(err) {
			return FileResult{Success: false, Message: fmt.Sprintf("file %s not found", file)}, nil
		}
		return FileResult{Success: false, Message: fmt.Sprintf("error reading file %s: %v", file, err)}, nil
	}

	return FileResult{
		Success: true,
		Content: string(content),
		Message: fmt.Sprintf("file %s read successfully", file),
	}, nil
}
