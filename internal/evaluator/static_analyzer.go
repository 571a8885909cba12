package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"relaycore.dev/agentcore/internal/model"
)

// StaticAnalyzerChecker shells out to golangci-lint and turns its JSON
// report into a "static_analysis" DimensionScore. Weight 0.2 per spec.
// Score degrades 1 − min(0.8, 0.10·errors + 0.03·warnings), floored at 0.2.
type StaticAnalyzerChecker struct {
	Runner CommandRunner
}

func (c *StaticAnalyzerChecker) Name() string { return "static_analysis" }

func (c *StaticAnalyzerChecker) Check(ctx context.Context, workDir string) (model.DimensionScore, []model.Finding, error) {
	if _, err := os.Stat(filepath.Join(workDir, "go.mod")); err != nil {
		return model.DimensionScore{}, nil, &model.CheckerUnavailableError{
			Checker: "static_analysis",
			Reason:  "no go.mod in working directory",
		}
	}

	out, _ := c.Runner.Run(ctx, workDir, "golangci-lint", "run", "--out-format", "json", "./...")

	report, err := parseGolangciReport(out)
	if err != nil {
		return model.DimensionScore{}, nil, &model.CheckerUnavailableError{
			Checker: "static_analysis",
			Reason:  "golangci-lint binary not available or produced no report: " + err.Error(),
		}
	}

	var errors, warnings int
	findings := make([]model.Finding, 0, len(report.Issues))
	for _, issue := range report.Issues {
		sev := model.SeveritySuggestion
		switch issue.Severity {
		case "error":
			errors++
			sev = model.SeverityImportant
		default:
			warnings++
		}
		findings = append(findings, model.Finding{
			Severity:    sev,
			Dimension:   "static_analysis",
			Title:       issue.FromLinter + ": " + issue.Text,
			Description: issue.Text,
			Location:    issue.Pos.Filename,
		})
	}

	score := 1 - min(0.8, 0.10*float64(errors)+0.03*float64(warnings))
	if score < 0.2 {
		score = 0.2
	}

	return model.DimensionScore{Name: "static_analysis", Score: score, Weight: 0.2}, findings, nil
}

// golangciReport mirrors the subset of golangci-lint's `--out-format json`
// schema this checker reads.
type golangciReport struct {
	Issues []struct {
		FromLinter string `json:"FromLinter"`
		Text       string `json:"Text"`
		Severity   string `json:"Severity"`
		Pos        struct {
			Filename string `json:"Filename"`
			Line     int    `json:"Line"`
		} `json:"Pos"`
	} `json:"Issues"`
}

func parseGolangciReport(out []byte) (*golangciReport, error) {
	var report golangciReport
	dec := json.NewDecoder(bytes.NewReader(out))
	if err := dec.Decode(&report); err != nil {
		return nil, err
	}
	return &report, nil
}
