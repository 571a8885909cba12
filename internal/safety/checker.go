// Package safety implements the per-iteration safety gate and the
// Executor's tool-loop detector thresholds.
package safety

import (
	"time"

	"relaycore.dev/agentcore/internal/model"
)

// Config bounds one task's execution, mirroring the caller-supplied limits
// the Safety Checker evaluates every iteration.
type Config struct {
	MaxTokens          int64
	MaxCostUSD         float64
	MaxDurationSecs    int64
	RegressionThreshold float64 // 0 disables regression checking
}

// Checker evaluates budget, cost, timeout, and regression conditions in a
// fixed order, first match wins.
type Checker struct {
	Config Config
}

// Check returns the Abort* decision that applies, or "" if none do.
// elapsed is time since the task started; cycles is every cycle evaluated
// so far for this task, oldest first.
func (c *Checker) Check(budget *model.TokenBudget, elapsed time.Duration, cycles []model.IterationCycle) model.IterationDecision {
	if budget.Spent >= c.Config.MaxTokens {
		return model.DecisionAbortBudget
	}
	if c.Config.MaxCostUSD > 0 && budget.CostUSD >= c.Config.MaxCostUSD {
		return model.DecisionAbortBudget
	}
	if c.Config.MaxDurationSecs > 0 && elapsed >= time.Duration(c.Config.MaxDurationSecs)*time.Second {
		return model.DecisionAbortTimeout
	}
	if c.Config.RegressionThreshold > 0 {
		if regressed, ok := detectRegression(cycles, c.Config.RegressionThreshold); ok && regressed {
			return model.DecisionAbortRegression
		}
	}
	return ""
}

// detectRegression compares the two most recent evaluated cycles. ok is
// false when fewer than 2 evaluated cycles exist yet.
func detectRegression(cycles []model.IterationCycle, threshold float64) (regressed, ok bool) {
	evaluated := make([]model.IterationCycle, 0, len(cycles))
	for _, c := range cycles {
		if c.Evaluation != nil {
			evaluated = append(evaluated, c)
		}
	}
	if len(evaluated) < 2 {
		return false, false
	}

	prev := evaluated[len(evaluated)-2]
	curr := evaluated[len(evaluated)-1]
	return prev.Score()-curr.Score() > threshold, true
}
