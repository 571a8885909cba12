package evaluator

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/model"
)

// fullReEvalDiffRatio is the diff_ratio above which incremental
// re-evaluation gives up and runs a full evaluation instead.
const fullReEvalDiffRatio = 0.6

// judgeInvokeDiffRatio and judgeInvokeScoreFloor gate whether the LLM judge
// is re-invoked during an incremental pass: either the output changed more
// than this ratio, or the prior score was still low enough to be worth
// double-checking.
const (
	judgeInvokeDiffRatio  = 0.1
	judgeInvokeScoreFloor = 0.9
)

// DiffRatio computes the fraction of changed lines between two outputs,
// comparing line-by-line after zero-padding the shorter side to the
// longer's length.
func DiffRatio(prev, cur string) float64 {
	prevLines := strings.Split(prev, "\n")
	curLines := strings.Split(cur, "\n")

	n := len(prevLines)
	if len(curLines) > n {
		n = len(curLines)
	}
	if n == 0 {
		return 0
	}

	changed := 0
	for i := 0; i < n; i++ {
		var a, b string
		if i < len(prevLines) {
			a = prevLines[i]
		}
		if i < len(curLines) {
			b = curLines[i]
		}
		if a != b {
			changed++
		}
	}
	return float64(changed) / float64(n)
}

// Incremental re-evaluates cur against prior, re-running the free checkers
// always but invoking the LLM judge only when the output changed enough or
// the prior score was still low. On a large diff it defers to a full
// evaluation instead.
func (e *Evaluator) Incremental(ctx context.Context, category, task, prevOutput, curOutput, workDir string, prior model.Evaluation) model.Evaluation {
	diff := DiffRatio(prevOutput, curOutput)
	if diff > fullReEvalDiffRatio {
		return e.Full(ctx, category, task, curOutput, workDir)
	}

	dims := make([]model.DimensionScore, 0, len(prior.Dimensions))
	for _, d := range prior.Dimensions {
		if d.Name != "tests" && d.Name != "static_analysis" {
			dims = append(dims, d)
		}
	}
	findings := make([]model.Finding, 0, len(prior.Findings))
	for _, f := range prior.Findings {
		if f.Dimension != "tests" && f.Dimension != "static_analysis" {
			findings = append(findings, f)
		}
	}

	testsPassed, staticPassed := prior.TestsPassed, prior.StaticAnalysisPassed
	for _, c := range e.Checkers {
		score, fs, err := c.Check(ctx, workDir)
		if err != nil {
			continue
		}
		dims = append(dims, score)
		findings = append(findings, fs...)
		if c.Name() == "tests" {
			testsPassed = score.Score >= 1.0
		}
		if c.Name() == "static_analysis" {
			staticPassed = score.Score >= 1.0
		}
	}

	if diff > judgeInvokeDiffRatio || prior.Score < judgeInvokeScoreFloor {
		dims, findings = e.reInvokeJudge(ctx, category, task, prevOutput, curOutput, dims, findings)
	}

	return model.Evaluation{
		Score:                model.ComposeScore(dims),
		Dimensions:           dims,
		Findings:             findings,
		TestsPassed:          testsPassed,
		StaticAnalysisPassed: staticPassed,
	}
}

// reInvokeJudge prompts the judge with truncated prior output, the current
// output, and prior scores/findings (by id), then applies its
// RESOLVED:/NEW_FINDINGS:/SCORES: response to the running dims/findings.
func (e *Evaluator) reInvokeJudge(ctx context.Context, category, task, prevOutput, curOutput string, dims []model.DimensionScore, findings []model.Finding) ([]model.DimensionScore, []model.Finding) {
	rubric := e.Judge.rubricFor(category)
	prompt := buildIncrementalPrompt(rubric, task, prevOutput, curOutput, findings)

	resp, err := e.Judge.Provider.Chat(ctx, llmprovider.ChatRequest{
		Messages: []llmprovider.Message{
			{Role: "system", Content: rubric.Prompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		return dims, findings
	}

	resolved, newFindings, scoreUpdates := parseIncrementalResponse(resp.Content)

	findings = removeResolved(findings, resolved)
	findings = append(findings, newFindings...)
	dims = applyScoreUpdates(dims, scoreUpdates)

	return dims, findings
}

func buildIncrementalPrompt(rubric Rubric, task, prevOutput, curOutput string, priorFindings []model.Finding) string {
	var ids strings.Builder
	for _, f := range priorFindings {
		fmt.Fprintf(&ids, "%s: %s\n", f.ID, f.Title)
	}

	return fmt.Sprintf(
		"Task:\n%s\n\nPrior output (truncated):\n%s\n\nCurrent output:\n%s\n\nPrior findings:\n%s\nRespond with exactly three sections:\nSCORES:\n<dimension>: <0-1 float> (only dimensions that changed)\nRESOLVED:\n<finding id> (one per line, blank if none)\nNEW_FINDINGS:\n<severity>|<title>|<description>|<fix or blank> (one per line, blank if none)",
		task, compressForJudge(prevOutput), curOutput, ids.String(),
	)
}

func compressForJudge(s string) string {
	const limit = 1000
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "...[truncated]"
}

// parseIncrementalResponse parses the SCORES:/RESOLVED:/NEW_FINDINGS: format.
func parseIncrementalResponse(content string) (resolved []string, newFindings []model.Finding, scoreUpdates []model.DimensionScore) {
	section := ""
	findingSeq := 0

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.EqualFold(line, "SCORES:"):
			section = "scores"
			continue
		case strings.EqualFold(line, "RESOLVED:"):
			section = "resolved"
			continue
		case strings.EqualFold(line, "NEW_FINDINGS:"):
			section = "new_findings"
			continue
		}

		switch section {
		case "scores":
			name, val, ok := splitKV(line, ":")
			if !ok {
				continue
			}
			score, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				continue
			}
			scoreUpdates = append(scoreUpdates, model.DimensionScore{Name: name, Score: score, Weight: 1.0})

		case "resolved":
			resolved = append(resolved, line)

		case "new_findings":
			parts := strings.SplitN(line, "|", 4)
			if len(parts) < 3 {
				continue
			}
			findingSeq++
			f := model.Finding{
				ID:          fmt.Sprintf("NF%d", findingSeq),
				Severity:    parseSeverity(parts[0]),
				Title:       strings.TrimSpace(parts[1]),
				Description: strings.TrimSpace(parts[2]),
			}
			if len(parts) == 4 {
				f.Fix = strings.TrimSpace(parts[3])
			}
			newFindings = append(newFindings, f)
		}
	}

	return resolved, newFindings, scoreUpdates
}

func removeResolved(findings []model.Finding, resolvedIDs []string) []model.Finding {
	if len(resolvedIDs) == 0 {
		return findings
	}
	resolved := make(map[string]bool, len(resolvedIDs))
	for _, id := range resolvedIDs {
		resolved[id] = true
	}
	out := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		if !resolved[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// applyScoreUpdates replaces any dimension named in updates, preserving the
// original weight, and appends updates for dimensions not already present.
func applyScoreUpdates(dims []model.DimensionScore, updates []model.DimensionScore) []model.DimensionScore {
	byName := make(map[string]int, len(dims))
	for i, d := range dims {
		byName[d.Name] = i
	}
	for _, u := range updates {
		if i, ok := byName[u.Name]; ok {
			dims[i].Score = u.Score
		} else {
			dims = append(dims, u)
		}
	}
	return dims
}
