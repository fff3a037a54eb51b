package search

import (
	"math"
	"strings"
	"time"

	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

// Fixed text-match confidences per match type.
const (
	textMatchExact          = 1.0
	textMatchGraphExpansion = 0.4
	textMatchPattern        = 0.7
	graphRelevancePattern   = 0.6

	maxCentralityBoost = 0.3
	columnHintBoost    = 0.2
	recencyBoost       = 0.1

	// usageSaturation is the pattern frequency at which UsageFrequency
	// reaches 1 before success-rate scaling.
	usageSaturation = 100
)

// computeTextMatch returns the TextMatch assigned to a candidate produced by
// matchType. Vector matches carry their similarity instead.
func computeTextMatch(matchType types.MatchType) float64 {
	switch matchType {
	case types.MatchExact, types.MatchSynonym:
		return textMatchExact
	case types.MatchGraphExpansion:
		return textMatchGraphExpansion
	case types.MatchPattern:
		return textMatchPattern
	default:
		return 0
	}
}

// HopDecay returns the graph relevance of a node hop edges away from a seed.
func HopDecay(hop int) float64 {
	switch {
	case hop <= 0:
		return 1.0
	case hop == 1:
		return 0.8
	case hop == 2:
		return 0.5
	default:
		return math.Max(0.2, 1.0-0.3*float64(hop))
	}
}

// graphRelevance applies HopDecay plus a bounded centrality boost.
func graphRelevance(hop int, centrality float64) float64 {
	boost := math.Min(maxCentralityBoost, math.Max(0, centrality))
	return utils.Clamp01(HopDecay(hop) + boost)
}

// qualitySignals are the inputs of the data-quality score.
type qualitySignals struct {
	hasDescription     bool
	hasSampleValues    bool
	hasBusinessRules   bool
	hasPartitionKeys   bool
	columnCompleteness float64
}

func (q qualitySignals) score() float64 {
	return utils.Clamp01(0.20*b2f(q.hasDescription) +
		0.20*b2f(q.hasSampleValues) +
		0.25*b2f(q.hasBusinessRules) +
		0.15*b2f(q.hasPartitionKeys) +
		0.20*math.Min(1, math.Max(0, q.columnCompleteness)))
}

// attributeQuality reads quality signals from a candidate's own attributes.
func attributeQuality(item *types.ScoredItem) qualitySignals {
	completeness, _ := types.AttrFloat(item.Attributes, "column_completeness")
	return qualitySignals{
		hasDescription:     item.Summary != "" || types.AttrPresent(item.Attributes, "description"),
		hasSampleValues:    types.AttrPresent(item.Attributes, "sample_values"),
		hasBusinessRules:   types.AttrPresent(item.Attributes, "business_rules"),
		hasPartitionKeys:   types.AttrPresent(item.Attributes, "partition_keys"),
		columnCompleteness: completeness,
	}
}

// contextQuality merges attribute signals with what a hydrated table context
// proves.
func contextQuality(item *types.ScoredItem, tc *types.TableContext) qualitySignals {
	q := attributeQuality(item)
	q.hasDescription = q.hasDescription || tc.Description != ""
	q.hasBusinessRules = q.hasBusinessRules || len(tc.BusinessRules) > 0
	q.hasPartitionKeys = q.hasPartitionKeys || len(tc.PartitionKeys) > 0
	for _, cs := range tc.CodeSets {
		if len(cs.Values) > 0 {
			q.hasSampleValues = true
			break
		}
	}
	q.columnCompleteness = tc.DescribedRatio()
	return q
}

// businessContext scores domain alignment, ownership and certification.
func businessContext(attrs map[string]any, domain, targetDomain string) float64 {
	sameDomain := targetDomain != "" && domain != "" && strings.EqualFold(domain, targetDomain)
	hasOwner := types.AttrPresent(attrs, "owner")
	certified := types.AttrBool(attrs, "certified") || types.AttrBool(attrs, "is_certified")
	return utils.Clamp01(0.50*b2f(sameDomain) + 0.20*b2f(hasOwner) + 0.30*b2f(certified))
}

// usageFrequency scores a query pattern by how often and how successfully it
// has been used. A missing success rate counts as fully successful.
func usageFrequency(attrs map[string]any, now time.Time, window time.Duration) float64 {
	freq, ok := types.AttrFloat(attrs, "frequency")
	if !ok {
		freq, _ = types.AttrFloat(attrs, "usage_count")
	}
	freq = math.Max(0, freq)

	successRate, ok := types.AttrFloat(attrs, "success_rate")
	if !ok {
		successRate = 1.0
	}

	score := math.Log1p(freq) / math.Log1p(usageSaturation) * math.Max(0.1, successRate)
	if recentlyUsed(attrs, now, window) {
		score += recencyBoost
	}
	return utils.Clamp01(score)
}

func recentlyUsed(attrs map[string]any, now time.Time, window time.Duration) bool {
	if types.AttrBool(attrs, "recently_used") {
		return true
	}
	raw := types.AttrString(attrs, "last_used")
	if raw == "" || window <= 0 {
		return false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return now.Sub(t) <= window
		}
	}
	return false
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
