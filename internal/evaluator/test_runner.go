package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	"relaycore.dev/agentcore/internal/model"
)

// projectMarkers maps a language manifest file to the command that runs its
// test suite in a machine-parseable format.
var projectMarkers = map[string][]string{
	"go.mod":         {"go", "test", "-json", "./..."},
	"package.json":   {"npm", "test", "--", "--json"},
	"pyproject.toml": {"pytest", "--json-report", "--json-report-file=-"},
	"Cargo.toml":     {"cargo", "test", "--message-format=json"},
}

// TestRunnerChecker shells out to the project's test command and parses a
// pass/fail summary into a "tests" DimensionScore. Weight 0.3 per spec.
type TestRunnerChecker struct {
	Runner CommandRunner
}

// CommandRunner abstracts exec.CommandContext so checkers are testable
// without a real toolchain present.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecCommandRunner runs commands via os/exec, combining stdout and stderr.
type ExecCommandRunner struct{}

func (ExecCommandRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

func (c *TestRunnerChecker) Name() string { return "tests" }

func (c *TestRunnerChecker) Check(ctx context.Context, workDir string) (model.DimensionScore, []model.Finding, error) {
	args, ok := detectMarker(workDir)
	if !ok {
		return model.DimensionScore{}, nil, &model.CheckerUnavailableError{
			Checker: "tests",
			Reason:  "no recognized project manifest in working directory",
		}
	}

	out, _ := c.Runner.Run(ctx, workDir, args[0], args[1:]...)

	passed, total, findings := parseGoTestJSON(out)
	score := 1.0
	if total > 0 {
		score = float64(passed) / float64(total)
	}

	return model.DimensionScore{Name: "tests", Score: score, Weight: 0.3}, findings, nil
}

func detectMarker(workDir string) ([]string, bool) {
	for marker, cmd := range projectMarkers {
		if _, err := os.Stat(filepath.Join(workDir, marker)); err == nil {
			return cmd, true
		}
	}
	return nil, false
}

// goTestEvent mirrors the subset of `go test -json` event fields this
// checker reads (TestEvent in cmd/test2json).
type goTestEvent struct {
	Action  string `json:"Action"`
	Test    string `json:"Test"`
	Package string `json:"Package"`
}

// parseGoTestJSON walks newline-delimited go test -json events and counts
// pass/fail per named test, emitting a Blocker Finding per failure.
func parseGoTestJSON(out []byte) (passed, total int, findings []model.Finding) {
	dec := json.NewDecoder(bytes.NewReader(out))
	for {
		var ev goTestEvent
		if err := dec.Decode(&ev); err != nil {
			break
		}
		if ev.Test == "" {
			continue
		}
		switch ev.Action {
		case "pass":
			passed++
			total++
		case "fail":
			total++
			findings = append(findings, model.Finding{
				Severity:    model.SeverityBlocker,
				Dimension:   "tests",
				Title:       "test failed: " + ev.Test,
				Description: "test " + ev.Test + " in package " + ev.Package + " failed",
				Location:    ev.Package,
			})
		}
	}
	return passed, total, findings
}
