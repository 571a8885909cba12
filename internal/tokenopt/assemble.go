package tokenopt

import (
	"strconv"

	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/model"
)

// outputBuffer reserves room for model output and prompt drift; assembly
// targets window-20_000, never the raw window.
const outputBuffer = 20_000

// toolResultProtectedTokens is the freshest tail of tool-call output that
// pruning never clears, keeping the most recent tool context intact even
// once older tool results are replaced with a placeholder.
const toolResultProtectedTokens = 40_000

const clearedPlaceholder = "[Old tool result cleared]"

// ExecutionContext is the fully assembled, budget-checked input to one
// ModelProvider call.
type ExecutionContext struct {
	System        string
	Messages      []llmprovider.Message
	TokenEstimate int64
}

// Assemble builds the ExecutionContext for one iteration and, if it would
// overflow the model's context window, prunes it to fit.
func Assemble(sc model.SessionContext, task model.TaskInput, plan model.Plan, iteration int, prev *model.IterationCycle) ExecutionContext {
	system := BuildSystemPrompt(sc, task, plan)
	messages := BuildIterationMessages(iteration, prev)

	ec := ExecutionContext{System: system, Messages: messages}
	ec.TokenEstimate = EstimateTokens(system) + estimateMessages(messages)

	window := sc.ModelContextWindow
	if window <= 0 {
		return ec
	}

	limit := int64(window) - outputBuffer
	if ec.TokenEstimate <= limit {
		return ec
	}

	budget := limit - EstimateTokens(system)
	ec.Messages = prune(messages, budget)
	ec.TokenEstimate = EstimateTokens(system) + estimateMessages(ec.Messages)
	return ec
}

func estimateMessages(msgs []llmprovider.Message) int64 {
	var total int64
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}

// prune applies the three-step overflow recovery: clear stale tool results
// outside the protected tail, then drop oldest messages with a synthetic
// notice, then fall back to keeping just the last message.
func prune(msgs []llmprovider.Message, budget int64) []llmprovider.Message {
	if budget < 0 {
		budget = 0
	}
	if estimateMessages(msgs) <= budget {
		return msgs
	}

	cleared := clearStaleToolResults(msgs)
	if estimateMessages(cleared) <= budget {
		return cleared
	}

	dropped, n := dropOldest(cleared, budget)
	if n > 0 {
		notice := llmprovider.Message{
			Role:    "user",
			Content: "[" + strconv.Itoa(n) + " earlier message(s) removed to fit context window]",
		}
		dropped = append([]llmprovider.Message{notice}, dropped...)
	}

	if estimateMessages(dropped) > budget && len(dropped) > 1 {
		return dropped[len(dropped)-1:]
	}
	if len(dropped) == 0 && len(msgs) > 0 {
		return msgs[len(msgs)-1:]
	}
	return dropped
}

// clearStaleToolResults replaces tool-role messages with a fixed placeholder
// once the running suffix of tool-result tokens (newest-first) exceeds the
// protected budget, keeping the freshest ~40k tokens of tool output intact.
func clearStaleToolResults(msgs []llmprovider.Message) []llmprovider.Message {
	out := make([]llmprovider.Message, len(msgs))
	copy(out, msgs)

	var suffixTokens int64
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role != "tool" {
			continue
		}
		tok := EstimateTokens(out[i].Content)
		if suffixTokens >= toolResultProtectedTokens {
			out[i].Content = clearedPlaceholder
		} else {
			suffixTokens += tok
		}
	}
	return out
}

// dropOldest removes messages from the front until the remainder fits
// budget, returning the surviving tail and the count dropped.
func dropOldest(msgs []llmprovider.Message, budget int64) ([]llmprovider.Message, int) {
	dropped := 0
	for len(msgs) > 0 && estimateMessages(msgs) > budget {
		msgs = msgs[1:]
		dropped++
	}
	return msgs, dropped
}
