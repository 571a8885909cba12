package evaluator

import (
	"context"
	"errors"
	"log/slog"

	"relaycore.dev/agentcore/internal/model"
)

// Evaluator runs the full composite evaluation: free checkers plus the LLM
// judge, composed into one Evaluation.
type Evaluator struct {
	Checkers []Checker
	Judge    *Judge
}

// Full runs every configured checker and the LLM judge, composing their
// dimensions into a single score. A checker reporting
// CheckerUnavailableError simply contributes no dimension; it is not a
// failure. A judge failure falls back to the conservative default but
// still keeps whatever the free checkers found.
func (e *Evaluator) Full(ctx context.Context, category, task, output, workDir string) model.Evaluation {
	var dims []model.DimensionScore
	var findings []model.Finding
	testsPassed := true
	staticPassed := true

	for _, c := range e.Checkers {
		score, fs, err := c.Check(ctx, workDir)
		if err != nil {
			var unavailable *model.CheckerUnavailableError
			if errors.As(err, &unavailable) {
				slog.DebugContext(ctx, "checker unavailable, omitting dimension",
					"checker", c.Name(), "reason", unavailable.Reason)
				continue
			}
			slog.WarnContext(ctx, "checker failed", "checker", c.Name(), "error", err)
			continue
		}
		dims = append(dims, score)
		findings = append(findings, fs...)
		if c.Name() == "tests" && score.Score < 1.0 {
			testsPassed = false
		}
		if c.Name() == "static_analysis" && score.Score < 1.0 {
			staticPassed = false
		}
	}

	judgeEval, err := e.Judge.Evaluate(ctx, category, task, output)
	if err != nil {
		slog.WarnContext(ctx, "llm judge failed, using conservative default", "error", err)
		if len(dims) == 0 {
			return conservativeDefault
		}
		return model.Evaluation{
			Score:                model.ComposeScore(dims),
			Dimensions:           dims,
			Findings:             findings,
			TestsPassed:          testsPassed,
			StaticAnalysisPassed: staticPassed,
			Suggestion:           "conservative default (judge unavailable)",
		}
	}

	dims = append(dims, judgeEval.Dimensions...)
	findings = append(findings, judgeEval.Findings...)

	return model.Evaluation{
		Score:                model.ComposeScore(dims),
		Dimensions:           dims,
		Findings:             findings,
		Suggestion:           judgeEval.Suggestion,
		Usage:                judgeEval.Usage,
		EvaluatorSkill:       judgeEval.EvaluatorSkill,
		TestsPassed:          testsPassed,
		StaticAnalysisPassed: staticPassed,
	}
}
