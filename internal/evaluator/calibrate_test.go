package evaluator_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/evaluator"
)

var _ = Describe("Calibrator", func() {
	It("passes raw scores through with fewer than 5 samples", func() {
		c := evaluator.NewCalibrator()
		for i := 0; i < 4; i++ {
			Expect(c.Calibrate("tests", 0.8)).To(Equal(0.8))
		}
	})

	It("passes through when the window has near-zero variance", func() {
		c := evaluator.NewCalibrator()
		var last float64
		for i := 0; i < 10; i++ {
			last = c.Calibrate("tests", 0.8)
		}
		Expect(last).To(Equal(0.8))
	})

	It("maps scores through sigmoid once variance is established", func() {
		c := evaluator.NewCalibrator()
		scores := []float64{0.2, 0.9, 0.3, 0.8, 0.4, 0.95}
		var last float64
		for _, s := range scores {
			last = c.Calibrate("tests", s)
		}
		Expect(last).To(BeNumerically(">=", 0))
		Expect(last).To(BeNumerically("<=", 1))
	})
})
