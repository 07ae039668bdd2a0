// Package openai adapts OpenAI-compatible chat-completion streaming APIs to
// the normalized provider contract. Unlike the Anthropic protocol, OpenAI
// chunking is not block-scoped: text and tool-call fragments interleave and
// no explicit block boundaries exist, so the adapter carries an explicit
// per-turn stream state that opens and closes blocks deterministically.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configures the OpenAI adapter.
type Options struct {
	APIKey              string
	MaxCompletionTokens int64
}

// Adapter wraps the OpenAI Chat Completions API behind the
// provider.Provider interface.
type Adapter struct {
	client openai.Client
	opts   Options
}

// New creates an OpenAI adapter using the official client.
func New(optFns ...func(o *Options)) *Adapter {
	opts := Options{MaxCompletionTokens: 4096}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	return &Adapter{client: openai.NewClient(clientOpts...), opts: opts}
}

// Kind implements provider.Provider.
func (a *Adapter) Kind() provider.Kind { return provider.KindOpenAI }

// streamState tracks the open block while translating one turn. It is a
// per-call value, never adapter state, so concurrent turns cannot share it.
type streamState struct {
	started   bool
	blockOpen bool
	callID    string
	done      bool
}

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
		return &provider.ConfigurationError{Provider: provider.KindOpenAI, Reason: "missing API key"}
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		Messages:            buildMessages(history),
		MaxCompletionTokens: openai.Int(a.opts.MaxCompletionTokens),
	}
	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	stream := a.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	state := &streamState{}
	for stream.Next() {
		if token.IsCanceled() {
			return nil
		}
		translateChunk(state, stream.Current(), onEvent)
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai stream error: %w", err)
	}
	finishTurn(state, onEvent)
	return nil
}

// finishTurn closes out a turn whose stream ended without a finish chunk,
// so downstream consumers always see the trailing message_stop.
func finishTurn(state *streamState, onEvent provider.Handler) {
	if !state.started || state.done {
		return
	}
	closeBlock(state, onEvent)
	state.done = true
	onEvent(provider.StreamEvent{Type: provider.EventMessageStop})
}

// translateChunk folds one native chunk into the block-scoped vocabulary.
func translateChunk(state *streamState, chunk openai.ChatCompletionChunk, onEvent provider.Handler) {
	if !state.started && chunk.ID != "" {
		state.started = true
		onEvent(provider.StreamEvent{
			Type:        provider.EventMessageStart,
			InputTokens: chunk.Usage.PromptTokens,
		})
	}
	if len(chunk.Choices) == 0 {
		return
	}
	choice := chunk.Choices[0]

	for _, tc := range choice.Delta.ToolCalls {
		// A fresh id opens a new tool_use block, closing whatever was open.
		if tc.ID != "" && tc.ID != state.callID {
			closeBlock(state, onEvent)
			state.blockOpen = true
			state.callID = tc.ID
			onEvent(provider.StreamEvent{
				Type:      provider.EventBlockStart,
				BlockType: core.BlockTypeToolUse,
				Tool:      tc.Function.Name,
				ToolUseID: tc.ID,
			})
		}
		if args := tc.Function.Arguments; args != "" {
			onEvent(provider.StreamEvent{Type: provider.EventBlockDelta, Delta: args})
		}
	}

	if choice.Delta.Content != "" {
		// Text after a tool call starts its own block.
		if state.callID != "" {
			closeBlock(state, onEvent)
		}
		if !state.blockOpen {
			state.blockOpen = true
			onEvent(provider.StreamEvent{
				Type:      provider.EventBlockStart,
				BlockType: core.BlockTypeText,
			})
		}
		onEvent(provider.StreamEvent{Type: provider.EventBlockDelta, Delta: choice.Delta.Content})
	}

	if choice.FinishReason != "" {
		closeBlock(state, onEvent)
		state.done = true
		onEvent(provider.StreamEvent{Type: provider.EventMessageStop})
	}
}

func closeBlock(state *streamState, onEvent provider.Handler) {
	if !state.blockOpen {
		return
	}
	state.blockOpen = false
	state.callID = ""
	onEvent(provider.StreamEvent{Type: provider.EventBlockStop})
}

// buildMessages converts the internal history into OpenAI chat messages.
// The system prompt keeps its dedicated role; tool_result blocks become
// native tool messages carrying their originating call id.
func buildMessages(history []*core.Message) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if system := provider.SystemText(history); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}

	for _, m := range provider.TurnMessages(history) {
		if results := toolResultMessages(m); len(results) > 0 {
			messages = append(messages, results...)
			continue
		}

		text := textContent(m.Blocks)
		switch provider.Role(m.Sender) {
		case "assistant":
			if toolCalls := extractToolCalls(m.Blocks); len(toolCalls) > 0 {
				// Text the assistant produced before calling tools stays in
				// the replayed turn alongside the calls.
				assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
				if text != "" {
					assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(text),
					}
				}
				messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
				continue
			}
			messages = append(messages, openai.AssistantMessage(text))
		default:
			messages = append(messages, openai.UserMessage(text))
		}
	}
	return messages
}

// toolResultMessages maps a tool-sender message's result blocks onto native
// tool messages, one per originating call.
func toolResultMessages(m *core.Message) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, b := range m.Blocks {
		if b.Type != core.BlockTypeToolResult || b.ToolUseID == "" {
			continue
		}
		messages = append(messages, openai.ToolMessage(b.ContentText(), b.ToolUseID))
	}
	return messages
}

func textContent(blocks []core.Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		if b.Type == core.BlockTypeText {
			sb.WriteString(b.ContentText())
		}
	}
	return sb.String()
}

func extractToolCalls(blocks []core.Block) []openai.ChatCompletionMessageToolCallParam {
	var calls []openai.ChatCompletionMessageToolCallParam
	for _, b := range blocks {
		if b.Type != core.BlockTypeToolUse {
			continue
		}
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID: b.ToolUseID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      b.Tool,
				Arguments: b.ContentText(),
			},
		})
	}
	return calls
}

// buildTools converts formatted function descriptors into typed SDK params.
func buildTools(tools []provider.FormattedTool) []openai.ChatCompletionToolParam {
	params := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		fn, ok := t["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := fn["name"].(string)
		description, _ := fn["description"].(string)
		parameters, _ := fn["parameters"].(map[string]any)

		params = append(params, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        name,
				Description: openai.String(description),
				Parameters:  openai.FunctionParameters(parameters),
			},
		})
	}
	return params
}
