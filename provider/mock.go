package provider

import (
	"context"
	"sync"

	"github.com/lcamargo/loom/core"
)

// MockTurn is one scripted model turn replayed by MockProvider.
type MockTurn struct {
	Events []StreamEvent
	Err    error
}

// TextTurn scripts a turn emitting a single text block.
func TextTurn(text string) MockTurn {
	return MockTurn{Events: []StreamEvent{
		{Type: EventMessageStart, InputTokens: int64(len(text))},
		{Type: EventBlockStart, BlockType: core.BlockTypeText},
		{Type: EventBlockDelta, Delta: text},
		{Type: EventBlockStop},
		{Type: EventMessageStop},
	}}
}

// ToolUseTurn scripts a turn emitting a single tool_use block whose input
// JSON arrives in one delta.
func ToolUseTurn(tool, toolUseID, argsJSON string) MockTurn {
	return MockTurn{Events: []StreamEvent{
		{Type: EventMessageStart},
		{Type: EventBlockStart, BlockType: core.BlockTypeToolUse, Tool: tool, ToolUseID: toolUseID},
		{Type: EventBlockDelta, Delta: argsJSON},
		{Type: EventBlockStop},
		{Type: EventMessageStop},
	}}
}

// MockProvider is a deterministic in-memory Provider replaying scripted
// turns. Useful for orchestrator and runner tests.
type MockProvider struct {
	mu        sync.Mutex
	kind      Kind
	turns     []MockTurn
	calls     int
	histories [][]*core.Message
	toolBatch [][]FormattedTool
}

// NewMockProvider constructs a mock replaying the given turns in order.
// Calls beyond the script replay an empty text turn.
func NewMockProvider(kind Kind, turns ...MockTurn) *MockProvider {
	return &MockProvider{kind: kind, turns: turns}
}

// Kind implements Provider.
func (m *MockProvider) Kind() Kind { return m.kind }

// ChatCompletion implements Provider, replaying the next scripted turn.
func (m *MockProvider) ChatCompletion(
	_ context.Context,
	_ string,
	history []*core.Message,
	token *core.CancelToken,
	tools []FormattedTool,
	onEvent Handler,
) error {
	if token.IsCanceled() {
		return nil
	}

	m.mu.Lock()
	turn := TextTurn("")
	if m.calls < len(m.turns) {
		turn = m.turns[m.calls]
	}
	m.calls++
	m.histories = append(m.histories, history)
	m.toolBatch = append(m.toolBatch, tools)
	m.mu.Unlock()

	if turn.Err != nil {
		return turn.Err
	}
	for _, ev := range turn.Events {
		if token.IsCanceled() {
			return nil
		}
		onEvent(ev)
	}
	return nil
}

// Calls returns how many turns were requested so far.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// History returns the message history passed to the i-th call.
func (m *MockProvider) History(i int) []*core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.histories[i]
}

// Tools returns the formatted tool schemas passed to the i-th call.
func (m *MockProvider) Tools(i int) []FormattedTool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toolBatch[i]
}
