package model

import "strings"

// PlanStep is one ordered step of a Plan.
type PlanStep struct {
	Description string   `json:"description"`
	ToolsNeeded []string `json:"tools_needed,omitempty"`
}

// Plan is the orchestrator's working plan for a task. EstimatedIterations and
// EstimatedTokenBudget are advisory; the safety checker is the hard gate.
//
// Invariant: at most one pending "Fix: " step per finding id carries forward
// across refinements (enforced by RefinePlan, see tokenopt package).
type Plan struct {
	Steps                []PlanStep `json:"steps"`
	EstimatedIterations  int        `json:"estimated_iterations"`
	EstimatedTokenBudget int64      `json:"estimated_token_budget"`
}

// fixStepPrefix marks a plan step generated from a prior refinement.
const fixStepPrefix = "Fix: "

// IsFixStep reports whether s was generated by a plan refinement.
func (s PlanStep) IsFixStep() bool {
	return strings.HasPrefix(s.Description, fixStepPrefix)
}
