package tokenopt

import (
	"fmt"
	"strings"

	"relaycore.dev/agentcore/internal/model"
)

const activeSkillsInline = 3

// BuildSystemPrompt assembles the cache-stable system prompt: Identity →
// Task → Plan → Active Skills → Memory Recall → Available Tools. Sections
// with no content are elided entirely so the prompt doesn't accumulate
// empty headers across a task with no recall history yet.
func BuildSystemPrompt(sc model.SessionContext, task model.TaskInput, plan model.Plan) string {
	var b strings.Builder

	writeSection(&b, "Identity", sc.Soul)
	writeSection(&b, "Task", task.Description)
	writeSection(&b, "Plan", formatPlan(plan))
	writeSection(&b, "Active Skills", formatSkills(sc.RankedSkills))
	writeSection(&b, "Memory Recall", formatRecall(sc.Recall))
	writeSection(&b, "Available Tools", formatTools(sc.Tools))

	return strings.TrimSuffix(b.String(), "\n\n")
}

func writeSection(b *strings.Builder, title, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n%s\n\n", title, content)
}

func formatPlan(plan model.Plan) string {
	if len(plan.Steps) == 0 {
		return ""
	}
	var lines []string
	for i, step := range plan.Steps {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, step.Description))
	}
	return strings.Join(lines, "\n")
}

// formatSkills inlines the top-k=3 ranked skills' full bodies; the rest get
// only name + one-line description, keeping the prompt bounded regardless
// of how many skills the selector ranked above threshold.
func formatSkills(ranked []model.RankedSkill) string {
	if len(ranked) == 0 {
		return ""
	}
	var lines []string
	for i, rs := range ranked {
		if i < activeSkillsInline {
			lines = append(lines, fmt.Sprintf("### %s\n%s", rs.Skill.Name, rs.Skill.Body))
		} else {
			lines = append(lines, fmt.Sprintf("- %s: %s", rs.Skill.Name, rs.Skill.Description))
		}
	}
	return strings.Join(lines, "\n")
}

// formatRecall orders anti-patterns (⚠-prefixed) first, then confidence-
// banded learnings, then skill recommendations, then the similarity
// bucket's learnings.
func formatRecall(r model.RecallResult) string {
	if r.IsEmpty() {
		return ""
	}
	var lines []string
	for _, l := range r.AntiPatterns {
		lines = append(lines, fmt.Sprintf("⚠ %s", l.Content))
	}
	for _, l := range r.Heuristics {
		lines = append(lines, fmt.Sprintf("[%s] %s", l.ConfidenceBand(), l.Content))
	}
	for _, rs := range r.TopSkills {
		lines = append(lines, fmt.Sprintf("recommended skill: %s", rs.Skill.Name))
	}
	for _, l := range r.Similar {
		lines = append(lines, fmt.Sprintf("similar task: %s", l.Content))
	}
	return strings.Join(lines, "\n")
}

func formatTools(tools []model.ToolSpec) string {
	if len(tools) == 0 {
		return ""
	}
	var lines []string
	for _, t := range tools {
		lines = append(lines, fmt.Sprintf("- %s: %s", t.Name, t.Description))
	}
	return strings.Join(lines, "\n")
}
