package orchestrator

import (
	"context"
	"fmt"

	"relaycore.dev/agentcore/internal/integration"
	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/model"
	"relaycore.dev/agentcore/internal/safety"
)

// maxToolRoundTrips bounds how many tool-call round-trips one iteration's
// execute phase may run before the Executor gives up and returns whatever
// it has accumulated so far.
const maxToolRoundTrips = 20

// Executor runs one iteration's execute phase: an initial ModelProvider
// call plus bounded tool-call round-trips, dispatching each call through a
// ToolDispatcher and tracking the running count against a tool-loop
// detector.
type Executor struct {
	Provider   llmprovider.Provider
	Dispatcher integration.ToolDispatcher
	ToolLoop   safety.ToolLoopDetector
}

// Run executes one iteration and returns the accumulated ExecutionOutput,
// the highest ToolLoopLevel reached this iteration, and an error only for
// a provider failure (context overflow included, so the caller can apply
// its own recovery path). onToolCall, if non-nil, is invoked once per
// dispatched tool call for progress reporting.
func (e *Executor) Run(ctx context.Context, sysPrompt string, messages []llmprovider.Message, tools []model.ToolSpec, onToolCall func(name string)) (model.ExecutionOutput, safety.ToolLoopLevel, error) {
	e.ToolLoop.Reset()

	turn := make([]llmprovider.Message, 0, len(messages)+1)
	turn = append(turn, llmprovider.Message{Role: "system", Content: sysPrompt})
	turn = append(turn, messages...)
	if len(messages) == 0 {
		turn = append(turn, llmprovider.Message{Role: "user", Content: "Begin."})
	}

	var out model.ExecutionOutput
	level := safety.ToolLoopNone

	for round := 0; round < maxToolRoundTrips; round++ {
		resp, err := e.Provider.Chat(ctx, llmprovider.ChatRequest{Messages: turn, Tools: tools})
		if err != nil {
			return out, level, err
		}

		out.Usage = out.Usage.Add(resp.Usage)
		if resp.Content != "" {
			out.Content = resp.Content
		}

		if resp.StopReason != llmprovider.StopReasonToolUse || len(resp.ToolCalls) == 0 {
			break
		}

		assistantTurn := llmprovider.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls}
		turn = append(turn, assistantTurn)

		breakLoop := false
		for _, tc := range resp.ToolCalls {
			out.ToolCallsMade++
			level = e.ToolLoop.RecordCall()
			if onToolCall != nil {
				onToolCall(tc.Name)
			}

			call := model.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
			result, files, derr := e.dispatch(ctx, call)
			out.FilesModified = append(out.FilesModified, files...)

			content := result
			if derr != nil {
				content = fmt.Sprintf("error: %s", derr)
			}
			turn = append(turn, llmprovider.Message{Role: "tool", Content: content, ToolCallID: tc.ID})

			if level == safety.ToolLoopCircuitBreaker {
				breakLoop = true
				break
			}
		}
		if breakLoop {
			break
		}
	}

	return out, level, nil
}

func (e *Executor) dispatch(ctx context.Context, call model.ToolCall) (string, []string, error) {
	if e.Dispatcher == nil {
		return "", nil, fmt.Errorf("no tool dispatcher configured for %q", call.Name)
	}
	return e.Dispatcher.Dispatch(ctx, call)
}
