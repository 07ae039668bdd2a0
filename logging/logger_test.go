package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(t *testing.T, level LogLevel) (*EngineLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: buf, Component: "engine"})
	return logger, buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("unknown"))
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
}

func TestEngineLoggerEmitsKeyValueArgs(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelInfo)

	logger.Info("running task", "task_id", "t-1")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "running task", entry["msg"])
	assert.Equal(t, "t-1", entry["task_id"])
	assert.Equal(t, "engine", entry["component"])
}

func TestEngineLoggerGatesBelowConfiguredLevel(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelWarn)

	logger.Debug("noise")
	logger.Info("noise")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestWithConversationScopesEntries(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelInfo)

	logger.WithConversation("conv-1", "task-1").Info("turn started")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "conv-1", entry["conversation_id"])
	assert.Equal(t, "task-1", entry["task_id"])

	// The base logger stays unscoped.
	buf.Reset()
	logger.Info("unscoped")
	entry = decodeEntry(t, buf)
	assert.NotContains(t, entry, "conversation_id")
}

func TestWithComponentReplacesComponent(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelInfo)

	logger.WithComponent("runner").Info("task queued")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "runner", entry["component"])
}

func TestLogToolCallRecordsOutcome(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelInfo)

	logger.LogToolCall("write_file", 5*time.Millisecond, false, errors.New("boom"))

	entry := decodeEntry(t, buf)
	assert.Equal(t, "Tool execution failed", entry["msg"])
	assert.Equal(t, "write_file", entry["tool_name"])
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogModelCallRecordsOutcome(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelInfo)

	logger.LogModelCall("anthropic", "claude-sonnet-4-0", 120, 10*time.Millisecond, true, nil)

	entry := decodeEntry(t, buf)
	assert.Equal(t, "Model call completed", entry["msg"])
	assert.Equal(t, "anthropic", entry["provider"])
	assert.Equal(t, "claude-sonnet-4-0", entry["model"])
	assert.Equal(t, float64(120), entry["input_tokens"])
}

func TestToolCallHelperUsesRichInterface(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelInfo)

	ToolCall(logger, "read_file", time.Millisecond, nil)

	entry := decodeEntry(t, buf)
	assert.Equal(t, "Tool execution completed", entry["msg"])
	assert.Equal(t, "engine", entry["component"])
}

type plainLogger struct {
	msgs []string
	args [][]any
}

func (p *plainLogger) Debug(msg string, args ...any) { p.record(msg, args) }
func (p *plainLogger) Info(msg string, args ...any)  { p.record(msg, args) }
func (p *plainLogger) Warn(msg string, args ...any)  { p.record(msg, args) }
func (p *plainLogger) Error(msg string, args ...any) { p.record(msg, args) }
func (p *plainLogger) record(msg string, args []any) {
	p.msgs = append(p.msgs, msg)
	p.args = append(p.args, args)
}

func TestModelCallHelperFallsBackToPlainLogger(t *testing.T) {
	plain := &plainLogger{}

	ModelCall(plain, "openai", "gpt-4o", 33, time.Millisecond, errors.New("timeout"))

	require.Len(t, plain.msgs, 1)
	assert.Equal(t, "Model call failed", plain.msgs[0])
	assert.Contains(t, plain.args[0], "timeout")
}

func TestForConversation(t *testing.T) {
	logger, buf := newBufferedLogger(t, LogLevelInfo)

	ForConversation(logger, "conv-9", "task-9").Info("scoped")
	entry := decodeEntry(t, buf)
	assert.Equal(t, "conv-9", entry["conversation_id"])

	// Loggers without scoping pass through unchanged.
	plain := &plainLogger{}
	assert.Equal(t, Logger(plain), ForConversation(plain, "conv-9", ""))
}

func TestSlogAdapterForwardsToHandler(t *testing.T) {
	buf := &bytes.Buffer{}
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(buf, nil)))

	adapter.Info("hello", "key", "value")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}
