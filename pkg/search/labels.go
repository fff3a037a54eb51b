package search

import (
	"github.com/soundprediction/schemagraph/pkg/types"
)

// labelStrategy captures how one node label behaves in the pipeline.
type labelStrategy struct {
	// vectorSearchable labels take part in Level 4.
	vectorSearchable bool
	// hydrate labels get a TableContext during enrichment.
	hydrate bool
	// bucket selects the result list the label is reported in; nil keeps it
	// in RankedResults only.
	bucket func(*types.SchemaSearchResult) *[]types.SchemaElement
	// related lists names shown next to the element.
	related func(*types.ScoredItem) []string
}

var labelStrategies = map[types.Label]labelStrategy{
	types.LabelTable: {
		vectorSearchable: true,
		hydrate:          true,
		bucket:           func(r *types.SchemaSearchResult) *[]types.SchemaElement { return &r.Tables },
		related:          tableRelated,
	},
	types.LabelColumn: {
		vectorSearchable: true,
		bucket:           func(r *types.SchemaSearchResult) *[]types.SchemaElement { return &r.Columns },
		related:          originRelated,
	},
	types.LabelBusinessEntity: {
		vectorSearchable: true,
		bucket:           func(r *types.SchemaSearchResult) *[]types.SchemaElement { return &r.Entities },
		related:          originRelated,
	},
	types.LabelQueryPattern: {
		vectorSearchable: true,
		bucket:           func(r *types.SchemaSearchResult) *[]types.SchemaElement { return &r.Patterns },
		related:          func(item *types.ScoredItem) []string { return item.TablesUsed },
	},
	types.LabelDomain:       {related: originRelated},
	types.LabelBusinessRule: {related: originRelated},
	types.LabelCodeSet:      {related: originRelated},
}

func strategyFor(label types.Label) labelStrategy {
	return labelStrategies[label]
}

// vectorLabels lists the vector-searchable labels in concatenation order.
func vectorLabels() []types.Label {
	var out []types.Label
	for _, label := range types.SearchableLabels {
		if strategyFor(label).vectorSearchable {
			out = append(out, label)
		}
	}
	return out
}

func originRelated(item *types.ScoredItem) []string {
	if item.Origin == "" {
		return nil
	}
	return []string{item.Origin}
}

func tableRelated(item *types.ScoredItem) []string {
	if item.Context == nil {
		return originRelated(item)
	}
	related := append([]string{}, item.Context.Entities...)
	for _, rt := range item.Context.RelatedTables {
		related = append(related, rt.Table)
	}
	if item.Origin != "" {
		related = append(related, item.Origin)
	}
	return compactNames(related)
}

// element converts a ranked item into its bucket entry.
func element(item *types.ScoredItem) types.SchemaElement {
	el := types.SchemaElement{
		Name:       item.Name,
		Label:      item.Label,
		Summary:    item.Summary,
		Score:      item.FinalScore,
		Attributes: item.Attributes,
	}
	if st := strategyFor(item.Label); st.related != nil {
		el.Related = st.related(item)
	}
	return el
}

// assemble fills the label buckets and the context list from ranked items.
func assemble(result *types.SchemaSearchResult, ranked []types.ScoredItem) {
	result.RankedResults = append(result.RankedResults, ranked...)
	for i := range ranked {
		item := &ranked[i]
		st := strategyFor(item.Label)
		if st.bucket != nil {
			bucket := st.bucket(result)
			*bucket = append(*bucket, element(item))
		}
		if st.hydrate && item.Context != nil {
			result.Context = append(result.Context, *item.Context)
		}
	}
}
