package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/lcamargo/loom/core"
)

// Kind tags one of the supported provider protocols. Adding a provider
// means adding a Kind plus an adapter, not widening conditionals.
type Kind string

const (
	// KindAnthropic targets the Anthropic Messages streaming API.
	KindAnthropic Kind = "anthropic"
	// KindOpenAI targets OpenAI-compatible chat-completion APIs.
	KindOpenAI Kind = "openai"
	// KindGoogle targets the Google generative AI API.
	KindGoogle Kind = "google"
)

// EventType enumerates the normalized stream event vocabulary.
type EventType string

const (
	// EventMessageStart opens a model turn and carries input token usage.
	EventMessageStart EventType = "message_start"
	// EventBlockStart opens a content block.
	EventBlockStart EventType = "block_start"
	// EventBlockDelta appends content to the open block.
	EventBlockDelta EventType = "block_delta"
	// EventBlockStop closes the open block.
	EventBlockStop EventType = "block_stop"
	// EventMessageStop terminates the turn.
	EventMessageStop EventType = "message_stop"
)

// StreamEvent is one normalized event of a provider turn. Adapters must
// emit a strictly block-scoped sequence: message_start, then for each block
// a block_start / deltas / block_stop bracket with no interleaving, then
// message_stop.
type StreamEvent struct {
	Type        EventType
	InputTokens int64
	BlockType   core.BlockType
	Tool        string
	ToolUseID   string
	Delta       string
}

// Handler receives normalized stream events in emission order.
type Handler func(ev StreamEvent)

// FormattedTool is a provider-specific tool schema produced by FormatTool.
type FormattedTool map[string]any

// Provider adapts one vendor's streaming chat-completion protocol.
//
// ChatCompletion resolves when the provider's stream ends or is aborted. It
// must return immediately without a network call when the token is already
// canceled, and must re-check the token before translating each incoming
// chunk, aborting the underlying stream on cancellation.
type Provider interface {
	Kind() Kind
	ChatCompletion(
		ctx context.Context,
		model string,
		history []*core.Message,
		token *core.CancelToken,
		tools []FormattedTool,
		onEvent Handler,
	) error
}

// ConfigurationError reports a provider that cannot issue requests, such as
// a missing API key. It is fatal to the run but not to the process.
type ConfigurationError struct {
	Provider Kind
	Reason   string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s configuration error: %s", e.Provider, e.Reason)
}

// Role maps an internal sender to the chat role providers understand.
// Tool results and synthesized prompts travel as user turns.
func Role(s core.Sender) string {
	switch s {
	case core.SenderTool, core.SenderUserSystem:
		return "user"
	default:
		return string(s)
	}
}

// SystemText hoists the text of system-sender messages into the single
// system-prompt string providers expect.
func SystemText(history []*core.Message) string {
	var sb strings.Builder
	for _, m := range history {
		if m.Sender != core.SenderSystem {
			continue
		}
		for _, b := range m.Blocks {
			if b.Type != core.BlockTypeText {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(b.ContentText())
		}
	}
	return sb.String()
}

// TurnMessages filters history down to the turn-taking list sent to a
// provider: system messages are hoisted separately, log messages are
// operator-visible only, and empty messages carry nothing worth sending.
func TurnMessages(history []*core.Message) []*core.Message {
	var turns []*core.Message
	for _, m := range history {
		if m.Sender == core.SenderSystem || m.Sender == core.SenderLog {
			continue
		}
		if len(m.Blocks) == 0 {
			continue
		}
		turns = append(turns, m)
	}
	return turns
}
