package search

import (
	"context"
	"errors"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

const (
	maxSearchTerms = 10
	exactPerTerm   = 5
)

// searchTerms returns the Level 1 terms: the caller's explicit entities or,
// without them, the raw query, followed by business-term synonyms.
func searchTerms(query string, hints types.Hints) []string {
	var terms []string
	if entities := utils.DedupeFold(hints.Entities); len(entities) > 0 {
		terms = append(terms, entities...)
	} else {
		terms = append(terms, query)
	}
	terms = append(terms, hints.BusinessTerms...)
	return utils.Truncate(utils.DedupeFold(terms), maxSearchTerms)
}

// exactMatch runs Level 1. Each term issues two lookups, one for business
// entities and one for tables. A failing lookup loses only its own rows; the
// level fails only when every lookup failed.
func (s *Searcher) exactMatch(ctx context.Context, terms []string, hints types.Hints) ([]types.ScoredItem, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	type lookup struct {
		term  string
		label types.Label
		query string
	}
	lookups := make([]lookup, 0, 2*len(terms))
	for _, term := range terms {
		lookups = append(lookups,
			lookup{term: term, label: types.LabelBusinessEntity, query: exactEntityQuery},
			lookup{term: term, label: types.LabelTable, query: exactTableQuery},
		)
	}

	results, errs := utils.MapConcurrent(ctx, s.cfg.MaxConcurrency, lookups, func(ctx context.Context, l lookup) ([]types.ScoredItem, error) {
		records, err := s.query(ctx, l.query, map[string]any{
			"group_id": s.cfg.GroupID,
			"term":     l.term,
			"database": hints.Database,
			"domain":   hints.Domain,
		})
		if err != nil {
			return nil, err
		}
		items := make([]types.ScoredItem, 0, min(len(records), exactPerTerm))
		for _, rec := range utils.Truncate(records, exactPerTerm) {
			item := itemFromRecord(rec, l.label)
			if item.Name == "" {
				continue
			}
			item.MatchType = types.MatchExact
			if !strings.Contains(strings.ToLower(item.Name), strings.ToLower(l.term)) {
				item.MatchType = types.MatchSynonym
			}
			item.TextMatch = computeTextMatch(item.MatchType)
			item.GraphRelevance = HopDecay(0)
			item.SourceLevel = types.LevelExact
			items = append(items, item)
		}
		return items, nil
	})

	var (
		out    []types.ScoredItem
		failed []error
		seen   = make(map[string]struct{})
	)
	for i, items := range results {
		if errs[i] != nil {
			s.logger.Warn("exact match lookup failed",
				"term", lookups[i].term, "label", lookups[i].label, "error", errs[i])
			failed = append(failed, errs[i])
			continue
		}
		for _, item := range items {
			if _, dup := seen[item.Key()]; dup {
				continue
			}
			seen[item.Key()] = struct{}{}
			out = append(out, item)
		}
	}
	if len(failed) == len(lookups) {
		return nil, errors.Join(failed...)
	}
	return out, nil
}
