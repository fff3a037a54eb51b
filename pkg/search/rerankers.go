package search

import (
	"sort"

	"github.com/soundprediction/schemagraph/pkg/types"
)

// Rerank fuses the five sub-scores of each item into FinalScore, keeps the
// best-scoring item per (Label, Name), drops items below threshold and
// returns the rest best first, at most topK of them. Ties keep input order.
// topK <= 0 disables truncation. The input slice is not modified.
func Rerank(items []types.ScoredItem, weights types.RerankerWeights, threshold float64, topK int) []types.ScoredItem {
	if len(items) == 0 {
		return []types.ScoredItem{}
	}
	weights = weights.Normalize()

	index := make(map[string]int, len(items))
	deduped := make([]types.ScoredItem, 0, len(items))
	for _, item := range items {
		item.FinalScore = weights.Score(&item)
		key := item.Key()
		if i, ok := index[key]; ok {
			if item.FinalScore > deduped[i].FinalScore {
				deduped[i] = item
			}
			continue
		}
		index[key] = len(deduped)
		deduped = append(deduped, item)
	}

	out := deduped[:0]
	for _, item := range deduped {
		if item.FinalScore >= threshold {
			out = append(out, item)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// rerank applies Rerank with the searcher's weights.
func (s *Searcher) rerank(items []types.ScoredItem, threshold float64, topK int) []types.ScoredItem {
	return Rerank(items, s.cfg.Weights, threshold, topK)
}
