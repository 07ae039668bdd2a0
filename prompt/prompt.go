// Package prompt renders prompt template files into message text. Templates
// are Go text/template files kept under assets/prompts; the runner and the
// orchestrator render them with task, project and file-reference variables.
package prompt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Default template paths used by the runner and the orchestrator.
const (
	RunTaskTemplate       = "run-task.md"
	FileReferenceTemplate = "file-reference.md"
)

// FileRenderer loads template files from a base directory and renders them
// with text/template. It implements core.Renderer.
type FileRenderer struct {
	dir string
}

// NewFileRenderer creates a renderer rooted at dir. Template paths passed to
// Render are resolved relative to dir unless absolute.
func NewFileRenderer(dir string) *FileRenderer {
	return &FileRenderer{dir: dir}
}

// Render implements core.Renderer.
func (r *FileRenderer) Render(templatePath string, vars map[string]any) (string, error) {
	path := templatePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading template %s: %w", templatePath, err)
	}
	return RenderText(string(raw), vars)
}

// RenderText renders template text against a variable map.
func RenderText(text string, vars map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"default": func(defaultVal any, val any) any {
			if val == nil || val == "" {
				return defaultVal
			}
			return val
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"join": func(sep string, items []any) string {
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = fmt.Sprintf("%v", item)
			}
			return strings.Join(parts, sep)
		},
	}).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
