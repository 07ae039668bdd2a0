package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/provider"
)

// ListFiles lists the directories and files of the conversation's project.
type ListFiles struct {
	projects core.ProjectStore
}

// NewListFiles constructs the list_files tool.
func NewListFiles(projects core.ProjectStore) *ListFiles {
	return &ListFiles{projects: projects}
}

// Definition implements Tool.
func (t *ListFiles) Definition() provider.ToolDef {
	return provider.ToolDef{
		Name:        "list_files",
		Description: "List the directories and files of the project",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"folder": map[string]any{
					"type":        "string",
					"description": "Project-relative directory to list",
				},
			},
		},
	}
}

// FileEntry is one listed directory entry.
type FileEntry struct {
	Name        string `json:"name"`
	IsDirectory bool   `json:"isDirectory"`
	Size        int64  `json:"size"`
}

// Execute implements Tool.
func (t *ListFiles) Execute(_ context.Context, conversation *core.Conversation, input map[string]any) (any, error) {
	project, err := resolveProject(t.projects, conversation)
	if err != nil {
		return nil, err
	}

	folder := stringInput(input, "folder")
	if folder == "" {
		folder = "."
	}

	dir := filepath.Join(project.Path, folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, NewError("list_files", fmt.Sprintf("cannot list %s: %v", folder, err))
	}

	files := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileEntry{
			Name:        entry.Name(),
			IsDirectory: entry.IsDir(),
			Size:        info.Size(),
		})
	}
	return files, nil
}
