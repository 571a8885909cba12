package memory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/memory"
	"relaycore.dev/agentcore/internal/model"
)

var _ = Describe("LexicalSimilarityIndex.Similar", func() {
	It("ranks candidates by word overlap with the query, most similar first", func() {
		idx := memory.LexicalSimilarityIndex{}
		candidates := []model.Learning{
			{Content: "retry transient network failures with backoff"},
			{Content: "prefer small focused pull requests"},
		}

		ranked, err := idx.Similar(context.Background(), "network failures need a retry with backoff", candidates)

		Expect(err).NotTo(HaveOccurred())
		Expect(ranked).NotTo(BeEmpty())
		Expect(ranked[0].Content).To(ContainSubstring("retry transient"))
	})

	It("excludes candidates below the match threshold", func() {
		idx := memory.LexicalSimilarityIndex{}
		candidates := []model.Learning{{Content: "completely unrelated text about baking bread"}}

		ranked, err := idx.Similar(context.Background(), "refactor the authentication middleware", candidates)

		Expect(err).NotTo(HaveOccurred())
		Expect(ranked).To(BeEmpty())
	})
})

var _ = Describe("TypesenseSimilarityIndex.Similar", func() {
	It("falls back to the lexical index when no client is configured", func() {
		idx := &memory.TypesenseSimilarityIndex{Collection: "learnings"}
		candidates := []model.Learning{{Content: "retry transient network failures with backoff"}}

		ranked, err := idx.Similar(context.Background(), "network failures need a retry", candidates)

		Expect(err).NotTo(HaveOccurred())
		Expect(ranked).To(HaveLen(1))
	})
})
