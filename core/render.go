package core

// Renderer renders a prompt template file with the given variables.
type Renderer interface {
	Render(templatePath string, vars map[string]any) (string, error)
}
