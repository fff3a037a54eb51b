package search

import (
	"context"

	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

const maxPatterns = 10

// patternsRequested reports whether Level 3 runs for these hints.
func patternsRequested(hints types.Hints) bool {
	return hints.IncludePatterns && hints.Intent != types.IntentRelationshipDiscovery
}

// intentSelectsPatterns reports whether intent names a class patterns are
// tagged with. "other" is a catch-all, not a tag.
func intentSelectsPatterns(intent types.Intent) bool {
	return intent != types.IntentUnspecified && intent != types.IntentOther
}

// matchPatterns runs Level 3: query patterns referencing the declared intent,
// or mentioning the query text when the intent is unspecified or other.
func (s *Searcher) matchPatterns(ctx context.Context, query string, intent types.Intent) ([]types.ScoredItem, error) {
	cypher := patternByTextQuery
	params := map[string]any{"group_id": s.cfg.GroupID, "query": query}
	if intentSelectsPatterns(intent) {
		cypher = patternByIntentQuery
		params = map[string]any{"group_id": s.cfg.GroupID, "intent": string(intent)}
	}

	records, err := s.query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]types.ScoredItem, 0, min(len(records), maxPatterns))
	seen := make(map[string]struct{})
	for _, rec := range utils.Truncate(records, maxPatterns) {
		item := itemFromRecord(rec, types.LabelQueryPattern)
		if item.Name == "" {
			continue
		}
		if _, dup := seen[item.Name]; dup {
			continue
		}
		seen[item.Name] = struct{}{}

		item.TablesUsed = compactNames(rec.Strings("tables"))
		if len(item.TablesUsed) == 0 {
			item.TablesUsed = compactNames(attrStrings(item.Attributes, "tables_used"))
		}
		item.MatchType = types.MatchPattern
		item.TextMatch = computeTextMatch(types.MatchPattern)
		item.GraphRelevance = graphRelevancePattern
		item.UsageFrequency = usageFrequency(item.Attributes, now, s.cfg.RecencyWindow)
		item.SourceLevel = types.LevelPattern
		out = append(out, item)
	}
	return out, nil
}
