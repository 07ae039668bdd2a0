package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/internal/util"
	"github.com/lcamargo/loom/logging"
)

// dispatch executes every tool_use block of a turn concurrently and returns
// one tool_result block per call, indexed to preserve the original block
// order. Tool failures never abort the turn; they become error-flagged
// results the model can react to.
func (o *Orchestrator) dispatch(ctx context.Context, conversation *core.Conversation, calls []core.Block) []core.Block {
	results := make([]core.Block, len(calls))
	wg := conc.NewWaitGroup()
	for i, call := range calls {
		i, call := i, call
		wg.Go(func() {
			results[i] = o.executeTool(ctx, conversation, call)
		})
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) executeTool(ctx context.Context, conversation *core.Conversation, call core.Block) core.Block {
	result := core.Block{
		ID:        core.NewID(),
		Type:      core.BlockTypeToolResult,
		Tool:      call.Tool,
		ToolUseID: call.ToolUseID,
	}

	start := time.Now()
	payload, err := o.runTool(ctx, conversation, call)
	logger := logging.ForConversation(o.logger, conversation.ID, conversation.TaskID)
	logging.ToolCall(logger, call.Tool, time.Since(start), err)
	if err != nil {
		result.IsError = true
		result.Content = map[string]any{
			"error":   err.Error(),
			"isError": true,
		}
		return result
	}

	result.Content = payload
	return result
}

func (o *Orchestrator) runTool(ctx context.Context, conversation *core.Conversation, call core.Block) (any, error) {
	t, ok := o.tools[call.Tool]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", call.Tool)
	}

	input := call.InputObject()
	if err := util.ValidateParameters(input, t.Definition().InputSchema); err != nil {
		return nil, err
	}
	return t.Execute(ctx, conversation, input)
}
