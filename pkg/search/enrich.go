package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/driver"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

// targetDomain returns the domain candidates are compared against: the
// caller's, else the first domain attribute seen among the candidates.
func targetDomain(items []types.ScoredItem, hints types.Hints) (domain string, inferred bool) {
	if d := strings.TrimSpace(hints.Domain); d != "" {
		return d, false
	}
	for i := range items {
		if d := types.AttrString(items[i].Attributes, "domain"); d != "" {
			return d, true
		}
	}
	return "", false
}

// enrich sets DataQuality and BusinessContext on every candidate and hydrates
// a TableContext for each distinct table. It returns a new slice; no item is
// ever dropped and a failed fetch leaves the attribute-based scores in place.
func (s *Searcher) enrich(ctx context.Context, items []types.ScoredItem, hints types.Hints, target string) []types.ScoredItem {
	out := make([]types.ScoredItem, len(items))
	copy(out, items)

	for i := range out {
		item := &out[i]
		item.DataQuality = math.Max(item.DataQuality, attributeQuality(item).score())
		item.BusinessContext = math.Max(item.BusinessContext,
			businessContext(item.Attributes, types.AttrString(item.Attributes, "domain"), target))
	}

	if !hints.ContextIncluded() {
		return out
	}

	contexts := s.tableContexts(ctx, out)
	if len(contexts) == 0 {
		return out
	}

	columnHints := utils.DedupeFold(hints.ColumnHints)
	for i := range out {
		item := &out[i]
		tc, ok := contexts[item.Name]
		if !ok || !strategyFor(item.Label).hydrate {
			continue
		}
		attached := *tc
		item.Context = &attached

		item.DataQuality = math.Max(item.DataQuality, contextQuality(item, tc).score())
		domain := tc.Domain
		if domain == "" {
			domain = types.AttrString(item.Attributes, "domain")
		}
		item.BusinessContext = math.Max(item.BusinessContext, businessContext(item.Attributes, domain, target))

		if len(columnHints) > 0 {
			matched := matchedColumns(tc, columnHints)
			item.TextMatch = utils.Clamp01(item.TextMatch + columnHintBoost*float64(matched)/float64(len(columnHints)))
		}
	}
	return out
}

// matchedColumns counts the hinted column names present in the table.
func matchedColumns(tc *types.TableContext, hints []string) int {
	names := make(map[string]struct{}, len(tc.Columns))
	for _, c := range tc.Columns {
		names[strings.ToLower(c.Name)] = struct{}{}
	}
	matched := 0
	for _, h := range hints {
		if _, ok := names[strings.ToLower(h)]; ok {
			matched++
		}
	}
	return matched
}

// tableContexts fetches the context of every distinct table candidate
// concurrently. Tables whose fetch failed or that no longer exist are absent
// from the returned map.
func (s *Searcher) tableContexts(ctx context.Context, items []types.ScoredItem) map[string]*types.TableContext {
	var names []string
	seen := make(map[string]struct{})
	for i := range items {
		if !strategyFor(items[i].Label).hydrate {
			continue
		}
		if _, dup := seen[items[i].Name]; dup {
			continue
		}
		seen[items[i].Name] = struct{}{}
		names = append(names, items[i].Name)
	}
	if len(names) == 0 {
		return nil
	}

	results, errs := utils.MapConcurrent(ctx, s.cfg.MaxConcurrency, names, s.TableContext)

	out := make(map[string]*types.TableContext, len(names))
	for i, tc := range results {
		if errs[i] != nil {
			s.logger.Warn("table context fetch failed", "table", names[i], "error", errs[i])
			continue
		}
		if tc != nil {
			out[names[i]] = tc
		}
	}
	return out
}

// TableContext loads the hydrated view of one table in a single round trip.
// It returns nil without error when the table does not exist.
func (s *Searcher) TableContext(ctx context.Context, table string) (*types.TableContext, error) {
	cacheKey := s.cfg.GroupID + ":" + table
	if s.contexts != nil {
		var cached types.TableContext
		found, err := s.contexts.Get(cacheKey, &cached)
		if err != nil {
			s.logger.Warn("table context cache read failed", "table", table, "error", err)
		}
		if found {
			return &cached, nil
		}
	}

	records, err := s.query(ctx, tableContextQuery, map[string]any{
		"name":     table,
		"group_id": s.cfg.GroupID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load context for table %s: %w", table, err)
	}

	tc, found := buildTableContext(table, records)
	if !found {
		return nil, nil
	}

	if s.contexts != nil {
		if err := s.contexts.Set(cacheKey, tc, s.cfg.ContextTTL); err != nil {
			s.logger.Warn("table context cache write failed", "table", table, "error", err)
		}
	}
	return tc, nil
}

type orderedColumn struct {
	info    types.ColumnInfo
	ordinal float64
	ordered bool
}

// buildTableContext folds the kind-tagged rows of tableContextQuery into a
// TableContext. found is false when the table row itself is missing.
func buildTableContext(table string, records []driver.Record) (*types.TableContext, bool) {
	tc := &types.TableContext{Table: table}
	found := false

	var columns []orderedColumn
	seenColumns := make(map[string]struct{})
	seenRelated := make(map[string]struct{})
	seenRules := make(map[string]struct{})
	seenCodeSets := make(map[string]struct{})

	for _, rec := range records {
		name := rec.String("name")
		summary := rec.String("summary")
		attrs := parseAttributes(rec["attributes"])

		switch rec.String("kind") {
		case contextKindTable:
			found = true
			tc.Description = firstNonEmpty(summary, types.AttrString(attrs, "description"))
			tc.Database = types.AttrString(attrs, "database")
			tc.PartitionKeys = attrStrings(attrs, "partition_keys")
			if tc.Domain == "" {
				tc.Domain = types.AttrString(attrs, "domain")
			}
		case contextKindColumn:
			if name == "" {
				continue
			}
			if _, dup := seenColumns[name]; dup {
				continue
			}
			seenColumns[name] = struct{}{}
			col := orderedColumn{info: columnInfo(name, summary, attrs)}
			col.ordinal, col.ordered = types.AttrFloat(attrs, "ordinal_position")
			if !col.ordered {
				col.ordinal, col.ordered = types.AttrFloat(attrs, "ordinal")
			}
			columns = append(columns, col)
		case contextKindEntity:
			if name != "" {
				tc.Entities = append(tc.Entities, name)
			}
		case contextKindRelated:
			relationship := rec.String("extra")
			key := name + "\x00" + relationship
			if name == "" || name == table {
				continue
			}
			if _, dup := seenRelated[key]; dup {
				continue
			}
			seenRelated[key] = struct{}{}
			tc.RelatedTables = append(tc.RelatedTables, types.RelatedTable{
				Table:         name,
				Relationship:  relationship,
				JoinCondition: firstNonEmpty(types.AttrString(attrs, "join_condition"), types.AttrString(attrs, "condition")),
			})
		case contextKindDomain:
			if name != "" {
				tc.Domain = name
			}
		case contextKindRule:
			if name == "" {
				continue
			}
			if _, dup := seenRules[name]; dup {
				continue
			}
			seenRules[name] = struct{}{}
			tc.BusinessRules = append(tc.BusinessRules, types.BusinessRule{
				Name:        name,
				Description: firstNonEmpty(summary, types.AttrString(attrs, "description")),
				Expression:  types.AttrString(attrs, "expression"),
			})
		case contextKindCodeSet:
			if name == "" {
				continue
			}
			if _, dup := seenCodeSets[name]; dup {
				continue
			}
			seenCodeSets[name] = struct{}{}
			tc.CodeSets = append(tc.CodeSets, types.CodeSet{
				Name:        name,
				Description: summary,
				Values:      attrStrings(attrs, "values"),
			})
		}
	}

	if !found {
		return nil, false
	}

	// columns with an ordinal come first, in ordinal order
	sort.SliceStable(columns, func(i, j int) bool {
		if columns[i].ordered != columns[j].ordered {
			return columns[i].ordered
		}
		return columns[i].ordered && columns[i].ordinal < columns[j].ordinal
	})

	partition := make(map[string]struct{}, len(tc.PartitionKeys))
	for _, k := range tc.PartitionKeys {
		partition[strings.ToLower(k)] = struct{}{}
	}
	for _, c := range columns {
		info := c.info
		if _, ok := partition[strings.ToLower(info.Name)]; ok {
			info.IsPartition = true
		}
		if info.IsPartition && len(partition) == 0 {
			tc.PartitionKeys = append(tc.PartitionKeys, info.Name)
		}
		tc.Columns = append(tc.Columns, info)
	}
	tc.Entities = compactNames(tc.Entities)
	return tc, true
}

func columnInfo(name, summary string, attrs map[string]any) types.ColumnInfo {
	nullable := true
	if _, ok := attrs["is_nullable"]; ok {
		nullable = types.AttrBool(attrs, "is_nullable")
	} else if _, ok := attrs["nullable"]; ok {
		nullable = types.AttrBool(attrs, "nullable")
	}
	return types.ColumnInfo{
		Name:         name,
		Type:         firstNonEmpty(types.AttrString(attrs, "data_type"), types.AttrString(attrs, "type")),
		Description:  firstNonEmpty(summary, types.AttrString(attrs, "description")),
		IsPrimaryKey: types.AttrBool(attrs, "is_primary_key"),
		IsForeignKey: types.AttrBool(attrs, "is_foreign_key"),
		IsPartition:  types.AttrBool(attrs, "is_partition"),
		IsNullable:   nullable,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
