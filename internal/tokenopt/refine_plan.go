package tokenopt

import (
	"fmt"

	"relaycore.dev/agentcore/internal/model"
)

// RefinePlan strips prior-refinement "Fix: " steps and appends one fresh
// fix step per non-Suggestion finding that carries a fix, keeping plan
// length bounded across however many iterations a task runs.
func RefinePlan(plan model.Plan, eval *model.Evaluation) model.Plan {
	steps := make([]model.PlanStep, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		if !s.IsFixStep() {
			steps = append(steps, s)
		}
	}

	if eval != nil {
		for _, f := range model.NonSuggestionFindings(eval.Findings) {
			if f.Fix == "" {
				continue
			}
			steps = append(steps, model.PlanStep{
				Description: fmt.Sprintf("Fix: %s - %s", f.Title, f.Fix),
			})
		}
	}

	plan.Steps = steps
	return plan
}
