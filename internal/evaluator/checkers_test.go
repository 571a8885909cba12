package evaluator_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/evaluator"
	"relaycore.dev/agentcore/internal/model"
)

var _ = Describe("TestRunnerChecker", func() {
	var workDir string

	BeforeEach(func() {
		workDir = GinkgoT().TempDir()
	})

	It("reports CheckerUnavailableError with no recognized project manifest", func() {
		checker := &evaluator.TestRunnerChecker{Runner: &mockCommandRunner{}}
		_, _, err := checker.Check(context.Background(), workDir)

		var unavailable *model.CheckerUnavailableError
		Expect(err).To(BeAssignableToTypeOf(unavailable))
	})

	It("scores 1.0 and reports no findings when every test passes", func() {
		Expect(os.WriteFile(filepath.Join(workDir, "go.mod"), []byte("module x\n"), 0o644)).To(Succeed())

		output := `{"Action":"pass","Test":"TestA","Package":"pkg"}
{"Action":"pass","Test":"TestB","Package":"pkg"}
`
		checker := &evaluator.TestRunnerChecker{Runner: &mockCommandRunner{
			runFn: func(_ context.Context, _ string, _ string, _ ...string) ([]byte, error) {
				return []byte(output), nil
			},
		}}

		score, findings, err := checker.Check(context.Background(), workDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(score.Score).To(Equal(1.0))
		Expect(score.Weight).To(Equal(0.3))
		Expect(findings).To(BeEmpty())
	})

	It("emits a Blocker finding per failed test", func() {
		Expect(os.WriteFile(filepath.Join(workDir, "go.mod"), []byte("module x\n"), 0o644)).To(Succeed())

		output := `{"Action":"pass","Test":"TestA","Package":"pkg"}
{"Action":"fail","Test":"TestB","Package":"pkg"}
`
		checker := &evaluator.TestRunnerChecker{Runner: &mockCommandRunner{
			runFn: func(_ context.Context, _ string, _ string, _ ...string) ([]byte, error) {
				return []byte(output), nil
			},
		}}

		score, findings, err := checker.Check(context.Background(), workDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(score.Score).To(Equal(0.5))
		Expect(findings).To(HaveLen(1))
		Expect(findings[0].Severity).To(Equal(model.SeverityBlocker))
	})
})
