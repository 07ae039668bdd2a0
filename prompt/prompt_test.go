package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTextPlain(t *testing.T) {
	out, err := RenderText("no markers here", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)
}

func TestRenderTextVariables(t *testing.T) {
	out, err := RenderText("task: {{ .task.Title }} ({{ upper .status }})", map[string]any{
		"task":   map[string]any{"Title": "Fix parser"},
		"status": "backlog",
	})
	require.NoError(t, err)
	assert.Equal(t, "task: Fix parser (BACKLOG)", out)
}

func TestRenderTextDefault(t *testing.T) {
	out, err := RenderText(`{{ default "unnamed" .name }}`, map[string]any{"name": ""})
	require.NoError(t, err)
	assert.Equal(t, "unnamed", out)
}

func TestRenderTextInvalidTemplate(t *testing.T) {
	_, err := RenderText("{{ .broken", nil)
	require.Error(t, err)
}

func TestFileRenderer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeting.md")
	require.NoError(t, os.WriteFile(path, []byte("hello {{ .who }}"), 0o644))

	renderer := NewFileRenderer(dir)

	out, err := renderer.Render("greeting.md", map[string]any{"who": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)

	out, err = renderer.Render(path, map[string]any{"who": "again"})
	require.NoError(t, err)
	assert.Equal(t, "hello again", out)

	_, err = renderer.Render("missing.md", nil)
	require.Error(t, err)
}
