package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundprediction/schemagraph/pkg/driver"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

// SearchByLabel returns the nodes of one searchable label most similar to
// embedding. Similarity is normalized to [0,1]; only nodes at or above
// threshold are kept, at most topK of them, best first. Stores with a cosine
// function rank inside the query; others are scanned and scored in process.
func (s *Searcher) SearchByLabel(ctx context.Context, label types.Label, embedding []float32, topK int, threshold float64, database string) ([]types.ScoredItem, error) {
	if !label.Searchable() {
		return nil, fmt.Errorf("%w: %q is not searchable", ErrInvalidLabel, label)
	}
	if topK < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopK, topK)
	}
	if topK == 0 || len(embedding) == 0 {
		return []types.ScoredItem{}, nil
	}
	threshold = utils.Clamp01(threshold)

	var (
		ranked []utils.Ranked[types.ScoredItem]
		err    error
	)
	if expr, ok := driver.VectorSimilarityExpr(s.store.Provider(), "n.embedding", "$embedding", len(embedding)); ok {
		ranked, err = s.rankInStore(ctx, label, expr, embedding, topK, threshold, database)
	} else {
		ranked, err = s.rankInProcess(ctx, label, embedding, threshold, database)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search %s embeddings: %w", label, err)
	}

	top := utils.TopKByScore(ranked, topK)
	out := make([]types.ScoredItem, 0, len(top))
	for _, r := range top {
		item := r.Item
		item.TextMatch = utils.Clamp01(r.Score)
		item.GraphRelevance = HopDecay(0)
		item.MatchType = types.MatchVector
		item.SourceLevel = types.LevelVector
		out = append(out, item)
	}
	return out, nil
}

func (s *Searcher) rankInStore(ctx context.Context, label types.Label, expr string, embedding []float32, topK int, threshold float64, database string) ([]utils.Ranked[types.ScoredItem], error) {
	records, err := s.query(ctx, vectorSimilarityQuery(label, expr, len(embedding), topK), map[string]any{
		"group_id":  s.cfg.GroupID,
		"database":  database,
		"embedding": driver.VectorParam(embedding),
		"threshold": threshold,
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]utils.Ranked[types.ScoredItem], 0, len(records))
	for _, rec := range records {
		score, ok := rec.Float("score")
		if !ok || score < threshold {
			continue
		}
		item := itemFromRecord(rec, label)
		if item.Name == "" {
			continue
		}
		ranked = append(ranked, utils.Ranked[types.ScoredItem]{Item: item, Score: score})
	}
	return ranked, nil
}

func (s *Searcher) rankInProcess(ctx context.Context, label types.Label, embedding []float32, threshold float64, database string) ([]utils.Ranked[types.ScoredItem], error) {
	records, err := s.query(ctx, vectorCandidateQuery(label, s.cfg.VectorScanLimit), map[string]any{
		"group_id": s.cfg.GroupID,
		"database": database,
	})
	if err != nil {
		return nil, err
	}
	if len(records) >= s.cfg.VectorScanLimit {
		s.logger.Warn("vector scan limit reached, some nodes were not scored",
			"label", label, "limit", s.cfg.VectorScanLimit)
	}

	ranked := make([]utils.Ranked[types.ScoredItem], 0, len(records))
	for _, rec := range records {
		vec := rec.Embedding("embedding")
		// a vector from another model would score a meaningless 0.5
		if len(vec) == 0 || len(vec) != len(embedding) {
			continue
		}
		similarity := utils.NormalizedSimilarity(embedding, vec)
		if similarity < threshold {
			continue
		}
		item := itemFromRecord(rec, label)
		if item.Name == "" {
			continue
		}
		ranked = append(ranked, utils.Ranked[types.ScoredItem]{Item: item, Score: similarity})
	}
	return ranked, nil
}

// vectorSearch runs Level 4: one SearchByLabel per vector-searchable label,
// concurrently, concatenated in label order. The level fails only when every
// label failed.
func (s *Searcher) vectorSearch(ctx context.Context, embedding []float32, topK int, threshold float64, database string) ([]types.ScoredItem, error) {
	labels := vectorLabels()
	results, errs := utils.MapConcurrent(ctx, s.cfg.MaxConcurrency, labels, func(ctx context.Context, label types.Label) ([]types.ScoredItem, error) {
		return s.SearchByLabel(ctx, label, embedding, topK, threshold, database)
	})

	var (
		out    []types.ScoredItem
		failed []error
	)
	for i, items := range results {
		if errs[i] != nil {
			s.logger.Warn("vector search failed", "label", labels[i], "error", errs[i])
			failed = append(failed, errs[i])
			continue
		}
		out = append(out, items...)
	}
	if len(failed) == len(labels) {
		return nil, errors.Join(failed...)
	}
	return out, nil
}
