package provider

// ToolDef is the provider-neutral tool definition. InputSchema is a JSON
// Schema object in the minimal subset the engine's tools declare. The
// neutral shape matches Anthropic's native tool format.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// FormatTool rewrites a neutral tool definition into the shape the target
// provider's function-calling API expects. Pure function; the input schema
// is never mutated.
//
// OpenAI-compatible targets wrap the schema in a "function" descriptor and
// force additionalProperties=false when the source schema omits it. The
// Anthropic and Google targets keep the native shape (the Google adapter
// converts the JSON schema into the SDK's schema type itself).
func FormatTool(def ToolDef, kind Kind) FormattedTool {
	if kind == KindOpenAI {
		params := make(map[string]any, len(def.InputSchema)+1)
		for k, v := range def.InputSchema {
			params[k] = v
		}
		if _, ok := params["additionalProperties"]; !ok {
			params["additionalProperties"] = false
		}
		return FormattedTool{
			"type": "function",
			"function": map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"parameters":  params,
			},
		}
	}

	return FormattedTool{
		"name":         def.Name,
		"description":  def.Description,
		"input_schema": def.InputSchema,
	}
}

// FormatTools applies FormatTool to every definition preserving order.
func FormatTools(defs []ToolDef, kind Kind) []FormattedTool {
	formatted := make([]FormattedTool, len(defs))
	for i, def := range defs {
		formatted[i] = FormatTool(def, kind)
	}
	return formatted
}
