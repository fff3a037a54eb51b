package search

import (
	"context"
	"errors"

	"github.com/soundprediction/schemagraph/pkg/driver"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

const maxSeedsPerLabel = 5

// expansionSeed is a Level 1 hit that graph expansion starts from.
type expansionSeed struct {
	name  string
	label types.Label
}

// expansionSeeds picks up to five distinct entities and five distinct tables
// from the Level 1 items, in order.
func expansionSeeds(items []types.ScoredItem) []expansionSeed {
	var entities, tables []expansionSeed
	seen := make(map[string]struct{})
	for _, item := range items {
		if _, dup := seen[item.Key()]; dup {
			continue
		}
		switch item.Label {
		case types.LabelBusinessEntity:
			if len(entities) < maxSeedsPerLabel {
				entities = append(entities, expansionSeed{name: item.Name, label: item.Label})
				seen[item.Key()] = struct{}{}
			}
		case types.LabelTable:
			if len(tables) < maxSeedsPerLabel {
				tables = append(tables, expansionSeed{name: item.Name, label: item.Label})
				seen[item.Key()] = struct{}{}
			}
		}
	}
	return append(entities, tables...)
}

// hopRow is one neighbor found while expanding.
type hopRow struct {
	origin     string
	originUUID string
	uuid       string
	hop        int
	record     driver.Record
}

// expandGraph runs Level 2. Entities are expanded along outgoing edges for up
// to MaxHops hops; tables follow JOIN, FOREIGN_KEY and BELONGS_TO_DOMAIN for
// one hop. Every query is bounded, so cycles cannot prevent termination.
func (s *Searcher) expandGraph(ctx context.Context, seeds []expansionSeed) ([]types.ScoredItem, error) {
	if len(seeds) == 0 {
		return nil, nil
	}

	firstHop, errs := utils.MapConcurrent(ctx, s.cfg.MaxConcurrency, seeds, func(ctx context.Context, seed expansionSeed) ([]hopRow, error) {
		cypher := tableNeighborQuery
		if seed.label == types.LabelBusinessEntity {
			cypher = entityFirstHopQuery
		}
		records, err := s.query(ctx, cypher, map[string]any{
			"name":     seed.name,
			"group_id": s.cfg.GroupID,
		})
		if err != nil {
			return nil, err
		}
		rows := make([]hopRow, 0, len(records))
		for _, rec := range records {
			rows = append(rows, hopRow{
				origin:     seed.name,
				originUUID: rec.String("origin_uuid"),
				uuid:       rec.String("uuid"),
				hop:        1,
				record:     rec,
			})
		}
		return rows, nil
	})

	var (
		rows   []hopRow
		failed []error
	)
	for i, r := range firstHop {
		if errs[i] != nil {
			s.logger.Warn("graph expansion failed", "seed", seeds[i].name, "label", seeds[i].label, "error", errs[i])
			failed = append(failed, errs[i])
			continue
		}
		rows = append(rows, r...)
	}
	if len(failed) == len(seeds) {
		return nil, errors.Join(failed...)
	}

	if s.cfg.MaxHops >= 2 {
		rows = append(rows, s.secondHop(ctx, rows)...)
	}

	return s.expansionItems(rows), nil
}

// secondHop expands every first-hop entity neighbor once more. Failures are
// logged; the first hop still stands.
func (s *Searcher) secondHop(ctx context.Context, first []hopRow) []hopRow {
	var frontier []hopRow
	visited := make(map[string]struct{})
	for _, r := range first {
		// only entity expansions carry an origin uuid
		if r.originUUID == "" || r.uuid == "" {
			continue
		}
		if _, dup := visited[r.uuid]; dup {
			continue
		}
		visited[r.uuid] = struct{}{}
		frontier = append(frontier, r)
	}
	if len(frontier) == 0 {
		return nil
	}

	results, errs := utils.MapConcurrent(ctx, s.cfg.MaxConcurrency, frontier, func(ctx context.Context, from hopRow) ([]hopRow, error) {
		records, err := s.query(ctx, secondHopQuery, map[string]any{
			"uuid":        from.uuid,
			"origin_uuid": from.originUUID,
		})
		if err != nil {
			return nil, err
		}
		rows := make([]hopRow, 0, len(records))
		for _, rec := range records {
			rows = append(rows, hopRow{
				origin:     from.origin,
				originUUID: from.originUUID,
				uuid:       rec.String("uuid"),
				hop:        2,
				record:     rec,
			})
		}
		return rows, nil
	})

	var out []hopRow
	for i, r := range results {
		if errs[i] != nil {
			s.logger.Warn("second hop expansion failed", "origin", frontier[i].origin, "error", errs[i])
			continue
		}
		out = append(out, r...)
	}
	return out
}

// expansionItems scores traversal rows, keeping the most relevant occurrence
// of each node.
func (s *Searcher) expansionItems(rows []hopRow) []types.ScoredItem {
	index := make(map[string]int)
	var out []types.ScoredItem
	for _, r := range rows {
		item := itemFromRecord(r.record, recordLabel(r.record, types.LabelBusinessEntity))
		if item.Name == "" {
			continue
		}
		centrality := 0.0
		if s.cfg.CentralityBoost {
			centrality, _ = types.AttrFloat(item.Attributes, "centrality")
		}
		item.MatchType = types.MatchGraphExpansion
		item.TextMatch = computeTextMatch(types.MatchGraphExpansion)
		item.GraphRelevance = graphRelevance(r.hop, centrality)
		item.HopDistance = r.hop
		item.SourceLevel = types.LevelGraph
		item.Origin = r.origin
		item.EdgeType = types.EdgeType(r.record.String("edge_type"))

		if i, ok := index[item.Key()]; ok {
			if item.GraphRelevance > out[i].GraphRelevance {
				out[i] = item
			}
			continue
		}
		index[item.Key()] = len(out)
		out = append(out, item)
	}
	return out
}
