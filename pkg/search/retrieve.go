package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

// levelOutcome is what one deeper-level branch hands back after the join.
type levelOutcome struct {
	level     types.Level
	items     []types.ScoredItem
	err       error
	embedding []float32
	embedErr  error
}

// Retrieve answers a schema question. Level 1 always runs; unless it already
// produced enough high-confidence hits, Levels 2 to 4 run concurrently. The
// merged candidates are enriched and reranked, and an empty ranking triggers
// the fallback. Downstream failures degrade the result instead of failing the
// call; only an empty query or a negative TopK return an error.
func (s *Searcher) Retrieve(ctx context.Context, query string, hints types.Hints) (*types.SchemaSearchResult, error) {
	start := s.now()
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if hints.TopK < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopK, hints.TopK)
	}

	used := hints
	if used.TopK == 0 {
		used.TopK = s.cfg.TopK
	}
	if used.Threshold == 0 {
		used.Threshold = s.cfg.VectorThreshold
	}
	used.Threshold = utils.Clamp01(used.Threshold)

	result := types.NewSchemaSearchResult(query, used)
	meta := &result.SearchMetadata
	meta.LevelCounts = make(map[string]int)
	meta.LevelErrors = make(map[string]string)

	terms := searchTerms(query, used)
	result.QueryAnalysis.SearchTerms = terms

	level1, err := s.exactMatch(ctx, terms, used)
	s.recordLevel(meta, types.LevelExact, level1, err)
	meta.FinalState = types.StateLevel1Done

	candidates := append([]types.ScoredItem{}, level1...)
	var (
		embedding     []float32
		embedAttempts bool
	)

	if s.shouldStopEarly(level1) {
		meta.EarlyStopped = true
		meta.FinalState = types.StateEarlyStop
		s.logger.Info("early stop", "query", query, "level1_results", len(level1))
	} else {
		meta.FinalState = types.StateDeeperLevels
		outcomes := s.deeperLevels(ctx, query, used, level1)
		for _, o := range outcomes {
			if o.level == types.LevelVector {
				embedAttempts = true
				embedding = o.embedding
				if o.embedErr != nil {
					meta.VectorSearchSkipped = true
					meta.LevelErrors["embedding"] = o.embedErr.Error()
					s.logger.Warn("query embedding failed, skipping vector search", "error", o.embedErr)
					continue
				}
			}
			s.recordLevel(meta, o.level, o.items, o.err)
			candidates = append(candidates, o.items...)
		}
		if used.SkipVector {
			meta.VectorSearchSkipped = true
		}
	}

	meta.CandidateCount = len(candidates)
	target, inferred := targetDomain(candidates, used)
	result.QueryAnalysis.TargetDomain = target
	result.QueryAnalysis.DomainInferred = inferred

	enriched := s.enrich(ctx, candidates, used, target)
	meta.FinalState = types.StateEnriched

	ranked := s.rerank(enriched, s.cfg.RerankThreshold, used.TopK)
	meta.FinalState = types.StateReranked

	if len(ranked) == 0 {
		if !embedAttempts && !used.SkipVector {
			embedding, err = s.embed(ctx, query)
			if err != nil {
				meta.VectorSearchSkipped = true
				meta.LevelErrors["embedding"] = err.Error()
				s.logger.Warn("query embedding failed, skipping relaxed search", "error", err)
			}
		}
		s.logger.Info("fallback", "query", query, "candidates", len(candidates))
		ranked = s.fallback(ctx, fallbackInput{
			query:     query,
			hints:     used,
			terms:     terms,
			target:    target,
			topK:      used.TopK,
			embedding: embedding,
		}, result)
		meta.FinalState = types.StateFallbackDone
	} else {
		meta.FinalState = types.StateDone
	}

	assemble(result, ranked)
	meta.ResultCount = len(ranked)
	if len(meta.LevelErrors) == 0 {
		meta.LevelErrors = nil
	}
	meta.Elapsed = s.now().Sub(start)

	s.logger.Debug("retrieval finished",
		"query", query,
		"levels", meta.LevelsExecuted,
		"candidates", meta.CandidateCount,
		"results", meta.ResultCount,
		"state", meta.FinalState,
		"elapsed", meta.Elapsed)
	return result, nil
}

// shouldStopEarly reports whether Level 1 alone is confident enough.
func (s *Searcher) shouldStopEarly(level1 []types.ScoredItem) bool {
	if len(level1) < s.cfg.EarlyStopMinResults || len(level1) == 0 {
		return false
	}
	best := 0.0
	for i := range level1 {
		best = max(best, level1[i].TextMatch)
	}
	return best >= s.cfg.EarlyStopScore
}

// deeperLevels runs Levels 2, 3 and 4 concurrently and joins them. Outcomes
// come back in level order; a recovered panic counts as that level's failure.
func (s *Searcher) deeperLevels(ctx context.Context, query string, hints types.Hints, level1 []types.ScoredItem) []levelOutcome {
	var branches []func() (levelOutcome, error)
	var levels []types.Level

	levels = append(levels, types.LevelGraph)
	branches = append(branches, func() (levelOutcome, error) {
		items, err := s.expandGraph(ctx, expansionSeeds(level1))
		return levelOutcome{level: types.LevelGraph, items: items, err: err}, nil
	})

	if patternsRequested(hints) {
		levels = append(levels, types.LevelPattern)
		branches = append(branches, func() (levelOutcome, error) {
			items, err := s.matchPatterns(ctx, query, hints.Intent)
			return levelOutcome{level: types.LevelPattern, items: items, err: err}, nil
		})
	}

	if !hints.SkipVector {
		levels = append(levels, types.LevelVector)
		branches = append(branches, func() (levelOutcome, error) {
			embedding, err := s.embed(ctx, query)
			if err != nil {
				return levelOutcome{level: types.LevelVector, embedErr: err}, nil
			}
			items, err := s.vectorSearch(ctx, embedding, hints.TopK, hints.Threshold, hints.Database)
			return levelOutcome{level: types.LevelVector, items: items, err: err, embedding: embedding}, nil
		})
	}

	outcomes, errs := utils.ExecuteWithResults(ctx, len(branches), branches...)
	for i := range outcomes {
		if errs[i] != nil {
			outcomes[i] = levelOutcome{level: levels[i], err: errs[i]}
		}
	}
	return outcomes
}

// recordLevel books a finished level into the metadata.
func (s *Searcher) recordLevel(meta *types.SearchMetadata, level types.Level, items []types.ScoredItem, err error) {
	name := level.String()
	meta.LevelsExecuted = append(meta.LevelsExecuted, name)
	meta.LevelCounts[name] = len(items)
	if err != nil {
		meta.LevelErrors[name] = err.Error()
		s.logger.Warn("retrieval level failed", "level", name, "error", err)
	}
}
