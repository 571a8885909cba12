package evaluator

import (
	"crypto/sha256"
	"encoding/hex"

	"relaycore.dev/agentcore/internal/model"
)

// DefaultSkipEvalConfidence is used when a task's config doesn't override
// the score threshold above which a passing prior cycle is trusted without
// re-evaluation until output changes.
const DefaultSkipEvalConfidence = 0.85

// ShouldSkipEval decides whether the current iteration can reuse the
// previous cycle's evaluation outright: identical output hashes to the
// same score by definition, and a confidently-passing prior cycle is
// trusted until the output changes.
func ShouldSkipEval(currentOutput string, previous *model.IterationCycle, skipEvalConfidence float64) bool {
	if previous == nil || previous.Output == nil {
		return false
	}

	if hashOutput(currentOutput) == hashOutput(previous.Output.Content) {
		return true
	}

	if previous.Evaluation == nil {
		return false
	}

	return previous.Evaluation.Score >= skipEvalConfidence &&
		previous.Evaluation.TestsPassed &&
		previous.Evaluation.StaticAnalysisPassed
}

func hashOutput(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
