package tokenopt

import (
	"fmt"
	"unicode/utf8"

	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/model"
)

const compressLimit = 2000

// BuildIterationMessages returns the message list for one iteration.
// Iteration 0 gets an empty list; the provider is given "Begin." as a
// synthetic first user turn by the caller. Iteration >=1 gets exactly two
// messages: the compressed previous output, and delta feedback derived from
// the previous evaluation.
func BuildIterationMessages(iteration int, prev *model.IterationCycle) []llmprovider.Message {
	if iteration == 0 || prev == nil {
		return nil
	}

	var prevOutput string
	if prev.Output != nil {
		prevOutput = prev.Output.Content
	}

	return []llmprovider.Message{
		{Role: "assistant", Content: compress(prevOutput)},
		{Role: "user", Content: deltaFeedback(prev.Evaluation)},
	}
}

// compress truncates s to 2000 Unicode code points, appending a marker with
// the untruncated length when truncation happened.
func compress(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= compressLimit {
		return s
	}
	runes := []rune(s)
	return fmt.Sprintf("%s...[truncated, %d chars total]", string(runes[:compressLimit]), n)
}

// deltaFeedback enumerates non-Suggestion findings with their fix (or
// description when no fix was given). With no critical findings left it
// says so briefly instead of emitting an empty section.
func deltaFeedback(eval *model.Evaluation) string {
	if eval == nil {
		return "No prior evaluation available."
	}

	findings := model.NonSuggestionFindings(eval.Findings)
	if len(findings) == 0 {
		return "No critical findings remain."
	}

	out := "Address the following before continuing:\n"
	for _, f := range findings {
		out += fmt.Sprintf("- [%s] %s: %s\n", f.Severity, f.Title, f.FixOrDescription())
	}
	return out
}
