// Package evaluator implements the composite multi-source Evaluator
// Framework: free static checkers, the LLM judge, score calibration, and
// incremental re-evaluation against a prior cycle.
package evaluator

import (
	"context"

	"relaycore.dev/agentcore/internal/model"
)

// Checker is a free (non-LLM) evaluation source: test runner or static
// analyzer. It reports CheckerUnavailableError when the project has no
// marker for that tool, which the composite evaluator treats as "omit this
// dimension", not a failure.
type Checker interface {
	Name() string
	Check(ctx context.Context, workDir string) (model.DimensionScore, []model.Finding, error)
}
