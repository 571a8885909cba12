package memory

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/model"
)

const (
	scoreDropThreshold       = 0.10
	scoreDropConfidence      = 0.7
	flatScoreDelta           = 0.02
	flatScoreMinIterations   = 3
	diminishingReturnsConf   = 0.5
	findingResidueConfidence = 0.6
	llmMiningMinCycles       = 2
	llmMiningMinFindings     = 3
)

// Extractor mines Learnings from a completed task's iteration history,
// per spec §4.5 "Learning extraction". The rule-based passes (score
// progression, finding residue) run unconditionally; the LLM mining pass
// only runs when the cycle history is rich enough to be worth a model call.
type Extractor struct {
	Provider llmprovider.Provider
}

// Extract runs every extraction rule against cycles and returns the
// resulting (not yet deduplicated) learnings.
func (e *Extractor) Extract(ctx context.Context, category string, cycles []model.IterationCycle) ([]model.Learning, error) {
	var out []model.Learning

	out = append(out, scoreProgressionLearnings(category, cycles)...)
	out = append(out, findingResidueLearning(category, cycles))

	if e.Provider != nil && shouldMineWithLLM(cycles) {
		mined, err := e.mineWithLLM(ctx, category, cycles)
		if err != nil {
			// LLM mining is best-effort: the rule-based passes above still
			// stand even if the model call fails.
			return compactLearnings(out), nil
		}
		out = append(out, mined...)
	}

	return compactLearnings(out), nil
}

// compactLearnings drops the empty-Content entries left by extraction
// helpers that found nothing to report.
func compactLearnings(in []model.Learning) []model.Learning {
	out := make([]model.Learning, 0, len(in))
	for _, l := range in {
		if l.Content != "" {
			out = append(out, l)
		}
	}
	return out
}

// scoreProgressionLearnings implements the two score-trend rules: a sharp
// drop between consecutive iterations becomes an AntiPattern, and two
// successive near-flat deltas over at least flatScoreMinIterations
// iterations becomes a "diminishing returns" Heuristic.
func scoreProgressionLearnings(category string, cycles []model.IterationCycle) []model.Learning {
	var out []model.Learning
	flatRun := 0

	for i := 1; i < len(cycles); i++ {
		delta := cycles[i].Score() - cycles[i-1].Score()

		if delta < -scoreDropThreshold {
			out = append(out, model.Learning{
				Type:       model.LearningTypeAntiPattern,
				Category:   category,
				Confidence: scoreDropConfidence,
				Content: fmt.Sprintf(
					"score dropped %.2f between iteration %d and %d; avoid whatever change iteration %d made",
					-delta, cycles[i-1].IterationIndex, cycles[i].IterationIndex, cycles[i].IterationIndex,
				),
			})
		}

		if abs(delta) < flatScoreDelta {
			flatRun++
		} else {
			flatRun = 0
		}

		if flatRun >= flatScoreMinIterations-1 {
			out = append(out, model.Learning{
				Type:       model.LearningTypeHeuristic,
				Category:   category,
				Confidence: diminishingReturnsConf,
				Content:    "diminishing returns: further iterations past this point rarely move the score",
			})
			flatRun = 0
		}
	}

	return out
}

// findingResidueLearning returns an AntiPattern naming the count of
// unresolved Blocker findings left on the last cycle, or the zero Learning
// (Content == "") when there is nothing to report.
func findingResidueLearning(category string, cycles []model.IterationCycle) model.Learning {
	if len(cycles) == 0 {
		return model.Learning{}
	}
	last := cycles[len(cycles)-1]
	if last.Evaluation == nil {
		return model.Learning{}
	}
	blockers := model.UnresolvedBlockers(last.Evaluation.Findings)
	if len(blockers) == 0 {
		return model.Learning{}
	}
	return model.Learning{
		Type:       model.LearningTypeAntiPattern,
		Category:   category,
		Confidence: findingResidueConfidence,
		Content: fmt.Sprintf(
			"task completed with %d unresolved blocker finding(s); review them before accepting similar output again",
			len(blockers),
		),
	}
}

func shouldMineWithLLM(cycles []model.IterationCycle) bool {
	if len(cycles) < llmMiningMinCycles {
		return false
	}
	for _, c := range cycles {
		if c.Evaluation != nil && len(c.Evaluation.Findings) >= llmMiningMinFindings {
			return true
		}
	}
	return false
}

func (e *Extractor) mineWithLLM(ctx context.Context, category string, cycles []model.IterationCycle) ([]model.Learning, error) {
	prompt := buildMiningPrompt(category, cycles)

	resp, err := e.Provider.Chat(ctx, llmprovider.ChatRequest{
		Messages: []llmprovider.Message{
			{Role: "system", Content: "You extract durable learnings from an agent's iteration history."},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 600,
	})
	if err != nil {
		return nil, err
	}

	return parseMinedLearnings(resp.Content, category), nil
}

func buildMiningPrompt(category string, cycles []model.IterationCycle) string {
	var b strings.Builder
	b.WriteString("Review this task's iteration history and extract 1 to 3 learnings.\n\n")
	for _, c := range cycles {
		b.WriteString(fmt.Sprintf("Iteration %d: score=%.2f", c.IterationIndex, c.Score()))
		if c.Evaluation != nil {
			b.WriteString(fmt.Sprintf(", findings=%d", len(c.Evaluation.Findings)))
			for _, f := range c.Evaluation.Findings {
				b.WriteString(fmt.Sprintf("\n  - [%s] %s", f.Severity, f.Title))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(`
Respond with one block per learning, in exactly this format, nothing else:

TYPE: heuristic|anti_pattern|preference
CONTENT: <one sentence, no task-specific identifiers>
CONFIDENCE: <0.0-1.0>
`)
	return b.String()
}

// parseMinedLearnings parses the strict TYPE:/CONTENT:/CONFIDENCE: grammar,
// tolerant of surrounding whitespace and blank separator lines between
// blocks.
func parseMinedLearnings(content, category string) []model.Learning {
	var out []model.Learning
	var cur model.Learning
	cur.Category = category

	flush := func() {
		if cur.Content != "" {
			out = append(out, cur)
		}
		cur = model.Learning{Category: category}
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, val, ok := splitMiningKV(line)
		if !ok {
			continue
		}
		switch strings.ToUpper(key) {
		case "TYPE":
			if cur.Content != "" || cur.Type != "" {
				flush()
			}
			cur.Type = model.LearningType(strings.ToLower(val))
		case "CONTENT":
			cur.Content = val
		case "CONFIDENCE":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				cur.Confidence = f
			}
		}
	}
	flush()

	return out
}

func splitMiningKV(line string) (key, val string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
