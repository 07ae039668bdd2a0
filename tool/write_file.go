package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/provider"
)

// WriteFile creates or updates a file inside the conversation's project by
// applying search/replace blocks. A block without a search string appends
// its replacement to the end of the file.
type WriteFile struct {
	projects core.ProjectStore
}

// NewWriteFile constructs the write_file tool.
func NewWriteFile(projects core.ProjectStore) *WriteFile {
	return &WriteFile{projects: projects}
}

// Definition implements Tool.
func (t *WriteFile) Definition() provider.ToolDef {
	return provider.ToolDef{
		Name:        "write_file",
		Description: "Create or update a project file",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"file", "blocks"},
			"properties": map[string]any{
				"file": map[string]any{
					"type":        "string",
					"description": "Project-relative path of the file to create or update",
				},
				"blocks": map[string]any{
					"type":        "array",
					"description": "Blocks of text to write or replace in the file",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"replace"},
						"properties": map[string]any{
							"search": map[string]any{
								"type":        "string",
								"description": "Existing block of text to be replaced",
							},
							"replace": map[string]any{
								"type":        "string",
								"description": "Block of text to insert or substitute",
							},
						},
					},
				},
			},
		},
	}
}

// Execute implements Tool.
func (t *WriteFile) Execute(_ context.Context, conversation *core.Conversation, input map[string]any) (any, error) {
	project, err := resolveProject(t.projects, conversation)
	if err != nil {
		return nil, err
	}

	file := stringInput(input, "file")
	path := filepath.Join(project.Path, file)

	var content string
	if existing, err := os.ReadFile(path); err == nil {
		content = string(existing)
	} else if !os.IsNotExist(err) {
		return FileResult{Success: false, Message: fmt.Sprintf("error reading file %s: %v", file, err)}, nil
	}

	blocks, _ := input["blocks"].([]any)
	for _, raw := range blocks {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		search, _ := block["search"].(string)
		replace, _ := block["replace"].(string)
		if search != "" {
			content = strings.Replace(content, search, replace, 1)
		} else {
			content += replace
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return FileResult{Success: false, Message: fmt.Sprintf("error updating file %s: %v", file, err)}, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return FileResult{Success: false, Message: fmt.Sprintf("error updating file %s: %v", file, err)}, nil
	}

	return FileResult{Success: true, Message: fmt.Sprintf("file %s updated successfully", file)}, nil
}
