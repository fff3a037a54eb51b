package search

import (
	"testing"

	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(name string, label types.Label, text, graph float64) types.ScoredItem {
	return types.ScoredItem{Name: name, Label: label, TextMatch: text, GraphRelevance: graph}
}

func TestRerankEmpty(t *testing.T) {
	out := Rerank(nil, types.DefaultRerankerWeights(), 0.2, 5)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestRerankDedupKeepsHigherScore(t *testing.T) {
	items := []types.ScoredItem{
		scored("orders", types.LabelTable, 0.4, 0.8),
		scored("orders", types.LabelColumn, 0.1, 0.1),
		scored("orders", types.LabelTable, 1.0, 1.0),
		scored("customers", types.LabelTable, 0.5, 0.5),
	}
	out := Rerank(items, types.DefaultRerankerWeights(), 0, 0)

	require.Len(t, out, 3)
	seen := map[string]bool{}
	for _, item := range out {
		assert.False(t, seen[item.Key()], "duplicate %s", item.Key())
		seen[item.Key()] = true
	}
	assert.Equal(t, "orders", out[0].Name)
	assert.Equal(t, types.LabelTable, out[0].Label)
	assert.InDelta(t, 0.55, out[0].FinalScore, 1e-9)
	assert.Equal(t, 0.4, items[0].TextMatch, "input untouched")
	assert.Zero(t, items[0].FinalScore)
}

func TestRerankDedupTieKeepsFirst(t *testing.T) {
	first := scored("a", types.LabelTable, 0.5, 0.5)
	first.Summary = "first"
	second := scored("a", types.LabelTable, 0.5, 0.5)
	second.Summary = "second"

	out := Rerank([]types.ScoredItem{first, second}, types.DefaultRerankerWeights(), 0, 0)
	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].Summary)
}

func TestRerankInvariants(t *testing.T) {
	weights := types.NewRerankerWeights(3, 2, 2, 2, 1)
	var items []types.ScoredItem
	for i := 0; i < 40; i++ {
		v := float64(i%10) / 10
		item := scored(string(rune('a'+i%13)), types.SearchableLabels[i%4], v, 1-v)
		item.DataQuality = float64(i%3) / 3
		item.UsageFrequency = float64(i%5) / 5
		item.BusinessContext = float64(i%2) / 2
		items = append(items, item)
	}

	const threshold, topK = 0.3, 7
	out := Rerank(items, weights, threshold, topK)

	assert.LessOrEqual(t, len(out), topK)
	keys := map[string]bool{}
	for i, item := range out {
		assert.GreaterOrEqual(t, item.FinalScore, threshold)
		if i > 0 {
			assert.GreaterOrEqual(t, out[i-1].FinalScore, item.FinalScore)
		}
		assert.False(t, keys[item.Key()])
		keys[item.Key()] = true
	}
}

func TestRerankStableOnTies(t *testing.T) {
	items := []types.ScoredItem{
		scored("c", types.LabelTable, 0.5, 0.5),
		scored("a", types.LabelTable, 0.5, 0.5),
		scored("b", types.LabelTable, 0.5, 0.5),
	}
	out := Rerank(items, types.DefaultRerankerWeights(), 0, 0)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{out[0].Name, out[1].Name, out[2].Name})
}

func TestRerankThresholdDropsAll(t *testing.T) {
	out := Rerank([]types.ScoredItem{scored("x", types.LabelTable, 0.1, 0.1)}, types.DefaultRerankerWeights(), 0.5, 3)
	assert.Empty(t, out)
}

func TestRerankNormalizesWeights(t *testing.T) {
	item := scored("x", types.LabelTable, 1, 1)
	item.DataQuality, item.UsageFrequency, item.BusinessContext = 1, 1, 1
	out := Rerank([]types.ScoredItem{item}, types.RerankerWeights{TextMatch: 2, GraphRelevance: 2}, 0, 1)
	require.Len(t, out, 1)
	assert.InDelta(t, 1.0, out[0].FinalScore, 1e-9)
}
