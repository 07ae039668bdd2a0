// Package google adapts the Google generative AI streaming API to the
// normalized provider contract. The Gemini protocol emits whole function
// calls rather than argument deltas, so each call is bridged into a
// block_start / single delta / block_stop bracket.
package google

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/provider"
	"google.golang.org/genai"
)

// Options configures the Google adapter.
type Options struct {
	APIKey string
}

// Adapter wraps the Gemini API behind the provider.Provider interface. The
// client is created per call because construction requires a context.
type Adapter struct {
	opts Options
}

// New creates a Google adapter.
func New(optFns ...func(o *Options)) *Adapter {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{opts: opts}
}

// Kind implements provider.Provider.
func (a *Adapter) Kind() provider.Kind { return provider.KindGoogle }

// ChatCompletion implements provider.Provider.
func (a *Adapter) ChatCompletion(
	ctx context.Context,
	model string,
	history []*core.Message,
	token *core.CancelToken,
	tools []provider.FormattedTool,
	onEvent provider.Handler,
) error {
	if token.IsCanceled() {
		return nil
	}
	if a.opts.APIKey == "" {
		return &provider.ConfigurationError{Provider: provider.KindGoogle, Reason: "missing API key"}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  a.opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("google client error: %w", err)
	}

	config := &genai.GenerateContentConfig{}
	if system := provider.SystemText(history); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(tools) > 0 {
		config.Tools = buildTools(tools)
	}

	started := false
	for resp, err := range client.Models.GenerateContentStream(ctx, model, buildContents(history), config) {
		if err != nil {
			return fmt.Errorf("google stream error: %w", err)
		}
		if token.IsCanceled() {
			return nil
		}
		translateChunk(resp, &started, onEvent)
	}
	if started {
		onEvent(provider.StreamEvent{Type: provider.EventMessageStop})
	}
	return nil
}

// translateChunk bridges one response chunk. Text parts stream as one-delta
// text blocks; function calls arrive whole and close immediately.
func translateChunk(resp *genai.GenerateContentResponse, started *bool, onEvent provider.Handler) {
	if !*started {
		*started = true
		var inputTokens int64
		if resp.UsageMetadata != nil {
			inputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		}
		onEvent(provider.StreamEvent{Type: provider.EventMessageStart, InputTokens: inputTokens})
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			call := part.FunctionCall
			id := call.ID
			if id == "" {
				// Gemini does not always assign call ids; mint one so tool
				// results can still pair with their calls.
				id = core.NewID()
			}
			args, err := json.Marshal(call.Args)
			if err != nil || len(call.Args) == 0 {
				args = []byte("{}")
			}
			onEvent(provider.StreamEvent{
				Type:      provider.EventBlockStart,
				BlockType: core.BlockTypeToolUse,
				Tool:      call.Name,
				ToolUseID: id,
			})
			onEvent(provider.StreamEvent{Type: provider.EventBlockDelta, Delta: string(args)})
			onEvent(provider.StreamEvent{Type: provider.EventBlockStop})
		case part.Text != "":
			onEvent(provider.StreamEvent{
				Type:      provider.EventBlockStart,
				BlockType: core.BlockTypeText,
			})
			onEvent(provider.StreamEvent{Type: provider.EventBlockDelta, Delta: part.Text})
			onEvent(provider.StreamEvent{Type: provider.EventBlockStop})
		}
	}
}

// buildContents converts the turn-taking history into Gemini contents.
func buildContents(history []*core.Message) []*genai.Content {
	var contents []*genai.Content
	for _, m := range provider.TurnMessages(history) {
		role := genai.RoleUser
		if provider.Role(m.Sender) == "assistant" {
			role = genai.RoleModel
		}

		var parts []*genai.Part
		for _, b := range m.Blocks {
			switch b.Type {
			case core.BlockTypeText:
				if text := b.ContentText(); text != "" {
					parts = append(parts, &genai.Part{Text: text})
				}
			case core.BlockTypeToolUse:
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   b.ToolUseID,
					Name: b.Tool,
					Args: b.InputObject(),
				}})
			case core.BlockTypeToolResult:
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       b.ToolUseID,
					Name:     b.Tool,
					Response: responsePayload(b),
				}})
			}
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

// responsePayload shapes a tool result into the map the SDK requires,
// keeping the error flag visible to the model.
func responsePayload(b core.Block) map[string]any {
	if m, ok := b.Content.(map[string]any); ok && !b.IsError {
		return m
	}
	if b.IsError {
		return map[string]any{"error": b.ContentText()}
	}
	return map[string]any{"result": b.Content}
}

// buildTools converts neutral tool schemas into Gemini function
// declarations.
func buildTools(tools []provider.FormattedTool) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		name, _ := t["name"].(string)
		description, _ := t["description"].(string)
		schema, _ := t["input_schema"].(map[string]any)
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        name,
			Description: description,
			Parameters:  toSchema(schema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// toSchema converts the minimal JSON-schema subset the engine's tools
// declare into the SDK's typed schema.
func toSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}

	out := &genai.Schema{Type: schemaType(schema)}
	if description, ok := schema["description"].(string); ok {
		out.Description = description
	}
	if properties, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(properties))
		for name, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				out.Properties[name] = toSchema(propMap)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toSchema(items)
	}
	switch required := schema["required"].(type) {
	case []string:
		out.Required = required
	case []any:
		for _, r := range required {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	switch enum := schema["enum"].(type) {
	case []string:
		out.Enum = enum
	case []any:
		for _, e := range enum {
			if s, ok := e.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}
	return out
}

func schemaType(schema map[string]any) genai.Type {
	t, _ := schema["type"].(string)
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}
