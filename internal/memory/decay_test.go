package memory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/memory"
	"relaycore.dev/agentcore/internal/model"
)

var _ = Describe("Decayer.Decay", func() {
	It("reduces confidence for learnings unused for several weeks", func() {
		sixWeeksAgo := time.Now().Add(-6 * 7 * 24 * time.Hour)
		store := newFakeLearningStore(model.Learning{
			Type: model.LearningTypeHeuristic, Category: "coding", Content: "prefer small PRs",
			Confidence: 0.9, LastUsed: &sixWeeksAgo, CreatedAt: sixWeeksAgo,
		})

		d := &memory.Decayer{Store: store}
		err := d.Decay(context.Background(), "coding", time.Now())

		Expect(err).NotTo(HaveOccurred())
		Expect(store.learnings[0].Confidence).To(BeNumerically("<", 0.9))
	})

	It("deletes learnings whose confidence falls below the minimum", func() {
		longAgo := time.Now().Add(-52 * 7 * 24 * time.Hour)
		store := newFakeLearningStore(model.Learning{
			Type: model.LearningTypeHeuristic, Category: "coding", Content: "stale heuristic",
			Confidence: 0.5, LastUsed: &longAgo, CreatedAt: longAgo,
		})

		d := &memory.Decayer{Store: store}
		err := d.Decay(context.Background(), "coding", time.Now())

		Expect(err).NotTo(HaveOccurred())
		Expect(store.deleted[1]).To(BeTrue())
	})

	It("leaves recently used learnings untouched", func() {
		now := time.Now()
		store := newFakeLearningStore(model.Learning{
			Type: model.LearningTypeHeuristic, Category: "coding", Content: "fresh heuristic",
			Confidence: 0.8, LastUsed: &now, CreatedAt: now,
		})

		d := &memory.Decayer{Store: store}
		err := d.Decay(context.Background(), "coding", now)

		Expect(err).NotTo(HaveOccurred())
		Expect(store.learnings[0].Confidence).To(Equal(0.8))
	})
})
