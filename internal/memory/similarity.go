package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"

	"relaycore.dev/agentcore/internal/model"
)

// similarityMatchThreshold is the minimum Jaccard score for a learning to be
// considered "similar" rather than noise.
const similarityMatchThreshold = 0.15

// SimilarityIndex is the reserved "similar past tasks via embedding
// similarity" recall signal (spec §4.5 item 4). It is never load-bearing:
// with a nil index Recall runs the other buckets and leaves Similar empty.
// Neither cmd entrypoint sets an index, so LexicalSimilarityIndex is only
// used when a caller sets it or as TypesenseSimilarityIndex's fallback.
type SimilarityIndex interface {
	// Similar ranks candidates by similarity to query, most similar first.
	Similar(ctx context.Context, query string, candidates []model.Learning) ([]model.Learning, error)
}

// LexicalSimilarityIndex ranks candidates by Jaccard word overlap with the
// query. Zero external dependencies; the fallback every installation has.
type LexicalSimilarityIndex struct{}

func (LexicalSimilarityIndex) Similar(_ context.Context, query string, candidates []model.Learning) ([]model.Learning, error) {
	qWords := wordSet(query)
	type scored struct {
		l     model.Learning
		score float64
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		s := jaccard(qWords, wordSet(c.Content))
		if s >= similarityMatchThreshold {
			scoredList = append(scoredList, scored{c, s})
		}
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].score > scoredList[j].score })

	out := make([]model.Learning, len(scoredList))
	for i, s := range scoredList {
		out[i] = s.l
	}
	return out, nil
}

// TypesenseSimilarityIndex is an optional similarity backend for
// deployments that run a Typesense cluster. It degrades to
// LexicalSimilarityIndex's ranking over the same candidate set when the
// collection query fails (e.g. the collection does not exist yet), so a
// misconfigured or absent Typesense instance never breaks recall.
type TypesenseSimilarityIndex struct {
	Client     *typesense.Client
	Collection string
	fallback   LexicalSimilarityIndex
}

// NewTypesenseSimilarityIndex builds an index backed by the given
// Typesense client and collection name.
func NewTypesenseSimilarityIndex(client *typesense.Client, collection string) *TypesenseSimilarityIndex {
	return &TypesenseSimilarityIndex{Client: client, Collection: collection}
}

func (t *TypesenseSimilarityIndex) Similar(ctx context.Context, query string, candidates []model.Learning) ([]model.Learning, error) {
	if t.Client == nil || len(candidates) == 0 {
		return t.fallback.Similar(ctx, query, candidates)
	}

	byContent := make(map[string]model.Learning, len(candidates))
	for _, c := range candidates {
		byContent[c.Content] = c
	}

	searchParams := &api.SearchCollectionParams{
		Q:       query,
		QueryBy: "content",
	}

	res, err := t.Client.Collection(t.Collection).Documents().Search(ctx, searchParams)
	if err != nil || res.Hits == nil {
		return t.fallback.Similar(ctx, query, candidates)
	}

	out := make([]model.Learning, 0, len(*res.Hits))
	for _, hit := range *res.Hits {
		if hit.Document == nil {
			continue
		}
		content, ok := (*hit.Document)["content"].(string)
		if !ok {
			continue
		}
		if l, found := byContent[content]; found {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return t.fallback.Similar(ctx, query, candidates)
	}
	return out, nil
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b|, 0 when both sets are empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
