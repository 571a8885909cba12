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

// Rubric is an evaluator skill's scoring guidance for one task category.
type Rubric struct {
	Category   string
	Dimensions []string
	Prompt     string
}

// Judge prompts a ModelProvider with a rubric and parses its strict
// SCORES:/FINDINGS:/SUGGESTION: response format.
type Judge struct {
	Provider llmprovider.Provider
	Rubrics  map[string]Rubric // keyed by category; "general" is the fallback
}

// conservativeDefault is returned whenever the judge cannot run at all
// (provider failure), per spec §4.3 failure semantics.
var conservativeDefault = model.Evaluation{
	Score:                0.5,
	TestsPassed:          false,
	StaticAnalysisPassed: false,
	Suggestion:           "conservative default",
}

func (j *Judge) rubricFor(category string) Rubric {
	if r, ok := j.Rubrics[category]; ok {
		return r
	}
	return j.Rubrics["general"]
}

// Evaluate runs a full LLM-judged evaluation of output against a rubric
// chosen by task category.
func (j *Judge) Evaluate(ctx context.Context, category, task, output string) (model.Evaluation, error) {
	rubric := j.rubricFor(category)

	prompt := buildJudgePrompt(rubric, task, output)
	resp, err := j.Provider.Chat(ctx, llmprovider.ChatRequest{
		Messages: []llmprovider.Message{
			{Role: "system", Content: rubric.Prompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return conservativeDefault, &model.EvaluatorError{Source: "llm_judge", Err: err}
	}

	if strings.TrimSpace(resp.Content) == "" {
		return defaultForDimensions(rubric.Dimensions, resp.Usage), nil
	}

	eval := parseJudgeResponse(resp.Content, rubric.Dimensions)
	eval.Usage = resp.Usage
	eval.EvaluatorSkill = rubric.Category
	eval.Score = model.ComposeScore(eval.Dimensions)
	return eval, nil
}

// defaultForDimensions gives every expected dimension a score of 0.75 when
// the judge returns an empty response, per spec §4.3.
func defaultForDimensions(dims []string, usage model.TokenUsage) model.Evaluation {
	weight := 1.0
	if n := len(dims); n > 0 {
		weight = 1.0 / float64(n)
	}
	scores := make([]model.DimensionScore, 0, len(dims))
	for _, d := range dims {
		scores = append(scores, model.DimensionScore{Name: d, Score: 0.75, Weight: weight})
	}
	return model.Evaluation{
		Score:      model.ComposeScore(scores),
		Dimensions: scores,
		Usage:      usage,
	}
}

func buildJudgePrompt(rubric Rubric, task, output string) string {
	return fmt.Sprintf(
		"Task:\n%s\n\nOutput:\n%s\n\nRespond with exactly three sections:\nSCORES:\n<dimension>: <0-1 float> (one per line)\nFINDINGS:\n<severity>|<title>|<description>|<fix or blank> (one per line, blank if none)\nSUGGESTION:\n<one line>",
		task, output,
	)
}

// parseJudgeResponse parses the strict SCORES:/FINDINGS:/SUGGESTION: format.
// Dimensions not named in expectedDims still parse but receive the
// unknown-dimension weight 1/|expectedDims|.
func parseJudgeResponse(content string, expectedDims []string) model.Evaluation {
	unknownWeight := 1.0
	if n := len(expectedDims); n > 0 {
		unknownWeight = 1.0 / float64(n)
	}
	known := make(map[string]bool, len(expectedDims))
	for _, d := range expectedDims {
		known[d] = true
	}

	var eval model.Evaluation
	section := ""
	findingID := 0

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
		case strings.EqualFold(line, "FINDINGS:"):
			section = "findings"
			continue
		case strings.EqualFold(line, "SUGGESTION:"):
			section = "suggestion"
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
			weight := 1.0
			if !known[name] {
				weight = unknownWeight
			}
			eval.Dimensions = append(eval.Dimensions, model.DimensionScore{Name: name, Score: score, Weight: weight})

		case "findings":
			parts := strings.SplitN(line, "|", 4)
			if len(parts) < 3 {
				continue
			}
			findingID++
			f := model.Finding{
				ID:          fmt.Sprintf("F%d", findingID),
				Severity:    parseSeverity(parts[0]),
				Title:       strings.TrimSpace(parts[1]),
				Description: strings.TrimSpace(parts[2]),
			}
			if len(parts) == 4 {
				f.Fix = strings.TrimSpace(parts[3])
			}
			eval.Findings = append(eval.Findings, f)

		case "suggestion":
			eval.Suggestion = line
		}
	}

	return eval
}

func splitKV(line, sep string) (string, string, bool) {
	idx := strings.Index(line, sep)
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), line[idx+len(sep):], true
}

func parseSeverity(s string) model.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blocker":
		return model.SeverityBlocker
	case "important":
		return model.SeverityImportant
	default:
		return model.SeveritySuggestion
	}
}
