// Package anthropic adapts the Anthropic Messages streaming API to the
// normalized provider contract.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/provider"
)

// Options configures the Anthropic adapter.
type Options struct {
	APIKey    string
	MaxTokens int64
}

// Adapter wraps the Anthropic Messages API behind the provider.Provider
// interface. The Anthropic protocol is already block-scoped, so translation
// is a direct event-for-event mapping.
type Adapter struct {
	client anthropic.Client
	opts   Options
}

// New creates an Anthropic adapter using the official client.
func New(optFns ...func(o *Options)) *Adapter {
	opts := Options{MaxTokens: 8192}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	return &Adapter{client: anthropic.NewClient(clientOpts...), opts: opts}
}

// Kind implements provider.Provider.
func (a *Adapter) Kind() provider.Kind { return provider.KindAnthropic }

// ChatCompletion implements provider.Provider. It streams one model turn,
// translating Anthropic stream events into the normalized vocabulary and
// polling the token before each chunk.
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
		return &provider.ConfigurationError{Provider: provider.KindAnthropic, Reason: "missing API key"}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  buildMessages(history),
		MaxTokens: a.opts.MaxTokens,
	}
	if system := provider.SystemText(history); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	stream := a.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		if token.IsCanceled() {
			return nil
		}
		translateEvent(stream.Current(), onEvent)
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream error: %w", err)
	}
	return nil
}

// translateEvent maps one native stream event onto the internal vocabulary.
// Unknown event categories (ping, message_delta) are dropped.
func translateEvent(ev anthropic.MessageStreamEventUnion, onEvent provider.Handler) {
	switch event := ev.AsAny().(type) {
	case anthropic.MessageStartEvent:
		onEvent(provider.StreamEvent{
			Type:        provider.EventMessageStart,
			InputTokens: event.Message.Usage.InputTokens,
		})
	case anthropic.ContentBlockStartEvent:
		switch block := event.ContentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			onEvent(provider.StreamEvent{
				Type:      provider.EventBlockStart,
				BlockType: core.BlockTypeText,
			})
		case anthropic.ToolUseBlock:
			onEvent(provider.StreamEvent{
				Type:      provider.EventBlockStart,
				BlockType: core.BlockTypeToolUse,
				Tool:      block.Name,
				ToolUseID: block.ID,
			})
		}
	case anthropic.ContentBlockDeltaEvent:
		switch delta := event.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			onEvent(provider.StreamEvent{Type: provider.EventBlockDelta, Delta: delta.Text})
		case anthropic.InputJSONDelta:
			onEvent(provider.StreamEvent{Type: provider.EventBlockDelta, Delta: delta.PartialJSON})
		}
	case anthropic.ContentBlockStopEvent:
		onEvent(provider.StreamEvent{Type: provider.EventBlockStop})
	case anthropic.MessageStopEvent:
		onEvent(provider.StreamEvent{Type: provider.EventMessageStop})
	}
}

// buildMessages converts the turn-taking history into Anthropic message
// params, mapping each block type onto its native representation.
func buildMessages(history []*core.Message) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, m := range provider.TurnMessages(history) {
		content := buildContent(m.Blocks)
		if len(content) == 0 {
			continue
		}
		if provider.Role(m.Sender) == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(content...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(content...))
		}
	}
	return messages
}

func buildContent(blocks []core.Block) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion
	for _, b := range blocks {
		switch b.Type {
		case core.BlockTypeText:
			if text := b.ContentText(); text != "" {
				content = append(content, anthropic.NewTextBlock(text))
			}
		case core.BlockTypeToolUse:
			content = append(content, anthropic.NewToolUseBlock(b.ToolUseID, b.InputObject(), b.Tool))
		case core.BlockTypeToolResult:
			content = append(content, anthropic.NewToolResultBlock(b.ToolUseID, b.ContentText(), b.IsError))
		}
	}
	return content
}

// buildTools converts formatted (native-shape) tool schemas into typed SDK
// params.
func buildTools(tools []provider.FormattedTool) []anthropic.ToolUnionParam {
	params := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		name, _ := t["name"].(string)
		description, _ := t["description"].(string)

		inputSchema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if schema, ok := t["input_schema"].(map[string]any); ok {
			if properties, exists := schema["properties"]; exists {
				inputSchema.Properties = properties
			}
			inputSchema.Required = requiredFields(schema)
		}

		tool := anthropic.ToolParam{Name: name, InputSchema: inputSchema}
		if description != "" {
			tool.Description = anthropic.String(description)
		}
		params = append(params, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return params
}

// requiredFields tolerates both []string literals and []any produced by a
// JSON round trip.
func requiredFields(schema map[string]any) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []any:
		fields := make([]string, 0, len(required))
		for _, r := range required {
			if s, ok := r.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	default:
		return nil
	}
}
