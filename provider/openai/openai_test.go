package openai

import (
	"testing"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/provider"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents() (*[]provider.StreamEvent, provider.Handler) {
	events := &[]provider.StreamEvent{}
	return events, func(ev provider.StreamEvent) { *events = append(*events, ev) }
}

func eventTypes(events []provider.StreamEvent) []provider.EventType {
	types := make([]provider.EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

// assertBracketed verifies every block_start is closed before the next one
// opens and before message_stop.
func assertBracketed(t *testing.T, events []provider.StreamEvent) {
	t.Helper()
	open := false
	for _, ev := range events {
		switch ev.Type {
		case provider.EventBlockStart:
			require.False(t, open, "block_start while a block is open")
			open = true
		case provider.EventBlockStop:
			require.True(t, open, "block_stop without an open block")
			open = false
		case provider.EventBlockDelta:
			require.True(t, open, "block_delta outside a block")
		case provider.EventMessageStop:
			require.False(t, open, "message_stop with an open block")
		}
	}
	require.False(t, open, "stream ended with an open block")
}

func textChunk(id, content string) openai.ChatCompletionChunk {
	return openai.ChatCompletionChunk{
		ID: id,
		Choices: []openai.ChatCompletionChunkChoice{
			{Delta: openai.ChatCompletionChunkChoiceDelta{Content: content}},
		},
	}
}

func toolCallChunk(id, callID, name, args string) openai.ChatCompletionChunk {
	return openai.ChatCompletionChunk{
		ID: id,
		Choices: []openai.ChatCompletionChunkChoice{
			{Delta: openai.ChatCompletionChunkChoiceDelta{
				ToolCalls: []openai.ChatCompletionChunkChoiceDeltaToolCall{
					{
						ID: callID,
						Function: openai.ChatCompletionChunkChoiceDeltaToolCallFunction{
							Name:      name,
							Arguments: args,
						},
					},
				},
			}},
		},
	}
}

func finishChunk(id, reason string) openai.ChatCompletionChunk {
	return openai.ChatCompletionChunk{
		ID: id,
		Choices: []openai.ChatCompletionChunkChoice{
			{FinishReason: reason},
		},
	}
}

func TestTranslateChunkBracketsTextThenToolCall(t *testing.T) {
	events, onEvent := collectEvents()
	state := &streamState{}

	translateChunk(state, textChunk("c1", "Hel"), onEvent)
	translateChunk(state, textChunk("c1", "lo"), onEvent)
	translateChunk(state, toolCallChunk("c1", "call_1", "write_file", `{"file_path":`), onEvent)
	translateChunk(state, toolCallChunk("c1", "", "", `"a.js"}`), onEvent)
	translateChunk(state, finishChunk("c1", "tool_calls"), onEvent)

	assert.Equal(t, []provider.EventType{
		provider.EventMessageStart,
		provider.EventBlockStart,
		provider.EventBlockDelta,
		provider.EventBlockDelta,
		provider.EventBlockStop,
		provider.EventBlockStart,
		provider.EventBlockDelta,
		provider.EventBlockDelta,
		provider.EventMessageStop,
	}, eventTypes(*events))
	assertBracketed(t, *events)

	toolStart := (*events)[5]
	assert.Equal(t, core.BlockTypeToolUse, toolStart.BlockType)
	assert.Equal(t, "write_file", toolStart.Tool)
	assert.Equal(t, "call_1", toolStart.ToolUseID)
}

func TestTranslateChunkSeparatesConsecutiveToolCalls(t *testing.T) {
	events, onEvent := collectEvents()
	state := &streamState{}

	translateChunk(state, toolCallChunk("c1", "call_1", "read_file", `{"file_path":"a"}`), onEvent)
	translateChunk(state, toolCallChunk("c1", "call_2", "read_file", `{"file_path":"b"}`), onEvent)
	translateChunk(state, finishChunk("c1", "tool_calls"), onEvent)

	assert.Equal(t, []provider.EventType{
		provider.EventMessageStart,
		provider.EventBlockStart,
		provider.EventBlockDelta,
		provider.EventBlockStop,
		provider.EventBlockStart,
		provider.EventBlockDelta,
		provider.EventBlockStop,
		provider.EventMessageStop,
	}, eventTypes(*events))
	assertBracketed(t, *events)

	assert.Equal(t, "call_1", (*events)[1].ToolUseID)
	assert.Equal(t, "call_2", (*events)[4].ToolUseID)
}

func TestTranslateChunkTextAfterToolCallOpensNewBlock(t *testing.T) {
	events, onEvent := collectEvents()
	state := &streamState{}

	translateChunk(state, toolCallChunk("c1", "call_1", "list_tasks", `{}`), onEvent)
	translateChunk(state, textChunk("c1", "Done."), onEvent)
	translateChunk(state, finishChunk("c1", "stop"), onEvent)

	assertBracketed(t, *events)
	types := eventTypes(*events)
	assert.Equal(t, []provider.EventType{
		provider.EventMessageStart,
		provider.EventBlockStart,
		provider.EventBlockDelta,
		provider.EventBlockStop,
		provider.EventBlockStart,
		provider.EventBlockDelta,
		provider.EventMessageStop,
	}, types)
	assert.Equal(t, core.BlockTypeText, (*events)[4].BlockType)
}

func TestFinishTurnClosesStreamWithoutFinishChunk(t *testing.T) {
	events, onEvent := collectEvents()
	state := &streamState{}

	translateChunk(state, textChunk("c1", "partial"), onEvent)
	finishTurn(state, onEvent)

	types := eventTypes(*events)
	require.NotEmpty(t, types)
	assert.Equal(t, provider.EventMessageStop, types[len(types)-1])
	assertBracketed(t, *events)

	// Idempotent after a finish chunk already stopped the message.
	finishTurn(state, onEvent)
	assert.Len(t, *events, len(types))
}

func TestTranslateChunkReportsInputTokens(t *testing.T) {
	events, onEvent := collectEvents()
	state := &streamState{}

	chunk := textChunk("c1", "hi")
	chunk.Usage = openai.CompletionUsage{PromptTokens: 42}
	translateChunk(state, chunk, onEvent)

	require.NotEmpty(t, *events)
	assert.Equal(t, provider.EventMessageStart, (*events)[0].Type)
	assert.Equal(t, int64(42), (*events)[0].InputTokens)
}

func TestBuildMessagesKeepsAssistantTextWithToolCalls(t *testing.T) {
	msg := core.NewMessage("conv-1", core.SenderAssistant)
	msg.Blocks = []core.Block{
		{Type: core.BlockTypeText, Content: "I'll write the file now."},
		{
			Type:      core.BlockTypeToolUse,
			Tool:      "write_file",
			ToolUseID: "call_1",
			Content:   map[string]any{"file_path": "a.js"},
		},
	}

	messages := buildMessages([]*core.Message{msg})
	require.Len(t, messages, 1)
	assistant := messages[0].OfAssistant
	require.NotNil(t, assistant)

	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "write_file", assistant.ToolCalls[0].Function.Name)
	assert.Equal(t, "I'll write the file now.", assistant.Content.OfString.Value)
}

func TestBuildMessagesMapsToolResults(t *testing.T) {
	system := core.NewTextMessage("conv-1", core.SenderSystem, "be brief")
	result := core.NewMessage("conv-1", core.SenderTool)
	result.Blocks = []core.Block{
		{Type: core.BlockTypeToolResult, ToolUseID: "call_1", Content: "ok"},
	}

	messages := buildMessages([]*core.Message{system, result})
	require.Len(t, messages, 2)
	require.NotNil(t, messages[0].OfSystem)
	require.NotNil(t, messages[1].OfTool)
	assert.Equal(t, "call_1", messages[1].OfTool.ToolCallID)
}
