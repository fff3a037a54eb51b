package search

import (
	"context"

	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

const (
	maxSuggestedDomains = 10
	maxDomainSamples    = 5
)

// fallbackInput carries what the primary pipeline learned into the fallback.
type fallbackInput struct {
	query     string
	hints     types.Hints
	terms     []string
	target    string
	topK      int
	embedding []float32
}

// fallback runs when reranking produced nothing: a relaxed vector search
// first, then domain discovery. The query is recorded as missing either way.
func (s *Searcher) fallback(ctx context.Context, in fallbackInput, result *types.SchemaSearchResult) []types.ScoredItem {
	meta := &result.SearchMetadata
	meta.FallbackTriggered = true
	defer s.recordMissing(ctx, in.query, in.terms)

	if len(in.embedding) > 0 {
		meta.FallbackStage = types.FallbackRelaxed
		relaxed, err := s.vectorSearch(ctx, in.embedding, s.cfg.RelaxedTopK, s.cfg.RelaxedVectorThreshold, in.hints.Database)
		if err != nil {
			s.logger.Warn("relaxed vector search failed", "error", err)
			meta.LevelErrors[types.FallbackRelaxed] = err.Error()
		}
		if len(relaxed) > 0 {
			ranked := s.rerank(s.enrich(ctx, relaxed, in.hints, in.target), s.cfg.RelaxedRerankThreshold, in.topK)
			if len(ranked) > 0 {
				s.logger.Info("fallback recovered results", "stage", types.FallbackRelaxed, "count", len(ranked))
				return ranked
			}
		}
	}

	meta.FallbackStage = types.FallbackDomainDiscovery
	domains, err := s.discoverDomains(ctx)
	if err != nil {
		s.logger.Warn("domain discovery failed", "error", err)
		meta.LevelErrors[types.FallbackDomainDiscovery] = err.Error()
	}
	result.SuggestedDomains = domains
	s.logger.Info("fallback suggested domains", "query", in.query, "domains", len(domains))
	return []types.ScoredItem{}
}

// discoverDomains lists the domains holding the most tables, with samples to
// help the caller narrow the question.
func (s *Searcher) discoverDomains(ctx context.Context) ([]types.DomainSummary, error) {
	records, err := s.query(ctx, domainDiscoveryQuery, map[string]any{"group_id": s.cfg.GroupID})
	if err != nil {
		return nil, err
	}
	out := make([]types.DomainSummary, 0, min(len(records), maxSuggestedDomains))
	for _, rec := range utils.Truncate(records, maxSuggestedDomains) {
		name := rec.String("name")
		if name == "" {
			continue
		}
		tables := compactNames(rec.Strings("tables"))
		entities := compactNames(rec.Strings("entities"))
		out = append(out, types.DomainSummary{
			Name:           name,
			Summary:        rec.String("summary"),
			TableCount:     len(tables),
			EntityCount:    len(entities),
			SampleTables:   utils.Truncate(tables, maxDomainSamples),
			SampleEntities: utils.Truncate(entities, maxDomainSamples),
		})
	}
	return out, nil
}

// recordMissing hands the query to the missing-query log. Failures, panics
// included, are logged and dropped.
func (s *Searcher) recordMissing(ctx context.Context, query string, terms []string) {
	defer utils.RecoverWithCallback(func(err error) {
		s.logger.Warn("failed to record missing query", "query", query, "error", err)
	})
	if s.queryLog == nil {
		return
	}
	if err := s.queryLog.Record(ctx, query, terms); err != nil {
		s.logger.Warn("failed to record missing query", "query", query, "error", err)
	}
}
