package provider

import (
	"context"
	"testing"

	"github.com/lcamargo/loom/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTool_OpenAIWrapsFunction(t *testing.T) {
	def := ToolDef{
		Name:        "read_file",
		Description: "Read a project file",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file": map[string]any{"type": "string"},
			},
			"required": []string{"file"},
		},
	}

	formatted := FormatTool(def, KindOpenAI)
	assert.Equal(t, "function", formatted["type"])

	fn, ok := formatted["function"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "read_file", fn["name"])
	assert.Equal(t, "Read a project file", fn["description"])

	params, ok := fn["parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, params["additionalProperties"])

	// The source schema must not be mutated.
	_, leaked := def.InputSchema["additionalProperties"]
	assert.False(t, leaked)
}

func TestFormatTool_OpenAIKeepsExplicitAdditionalProperties(t *testing.T) {
	def := ToolDef{
		Name:        "list_files",
		InputSchema: map[string]any{"type": "object", "additionalProperties": true},
	}
	fn := FormatTool(def, KindOpenAI)["function"].(map[string]any)
	params := fn["parameters"].(map[string]any)
	assert.Equal(t, true, params["additionalProperties"])
}

func TestFormatTool_AnthropicPassThrough(t *testing.T) {
	schema := map[string]any{"type": "object"}
	def := ToolDef{Name: "write_task", Description: "d", InputSchema: schema}

	formatted := FormatTool(def, KindAnthropic)
	assert.Equal(t, "write_task", formatted["name"])
	assert.Equal(t, FormattedTool{
		"name":         "write_task",
		"description":  "d",
		"input_schema": schema,
	}, formatted)
}

func TestRegistry_ResolveAndFallback(t *testing.T) {
	reg := NewRegistry(KindAnthropic)
	mock := NewMockProvider(KindAnthropic)
	reg.Register(mock)

	p, err := reg.Resolve("")
	require.NoError(t, err)
	assert.Same(t, Provider(mock), p)

	_, err = reg.Resolve(KindGoogle)
	assert.Error(t, err)
}

func TestRole_Mapping(t *testing.T) {
	assert.Equal(t, "user", Role(core.SenderTool))
	assert.Equal(t, "user", Role(core.SenderUserSystem))
	assert.Equal(t, "user", Role(core.SenderUser))
	assert.Equal(t, "assistant", Role(core.SenderAssistant))
}

func TestTurnMessages_FiltersSystemLogAndEmpty(t *testing.T) {
	history := []*core.Message{
		core.NewTextMessage("c1", core.SenderSystem, "prompt"),
		core.NewTextMessage("c1", core.SenderUser, "hi"),
		core.NewTextMessage("c1", core.SenderLog, "stream failed"),
		core.NewMessage("c1", core.SenderAssistant), // no blocks yet
	}

	turns := TurnMessages(history)
	require.Len(t, turns, 1)
	assert.Equal(t, core.SenderUser, turns[0].Sender)

	assert.Equal(t, "prompt", SystemText(history))
}

func TestMockProvider_ReplaysScriptAndHonorsCancel(t *testing.T) {
	mock := NewMockProvider(KindAnthropic, TextTurn("Done."))

	var events []StreamEvent
	token := core.NewCancelToken(nil)
	err := mock.ChatCompletion(context.Background(), "m", nil, token, nil, func(ev StreamEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, EventMessageStart, events[0].Type)
	assert.Equal(t, EventMessageStop, events[4].Type)

	// Already-canceled token: no call is recorded.
	canceled := core.NewCancelToken(nil)
	canceled.Cancel()
	err = mock.ChatCompletion(context.Background(), "m", nil, canceled, nil, func(StreamEvent) {
		t.Fatal("no events expected after cancellation")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls())
}
