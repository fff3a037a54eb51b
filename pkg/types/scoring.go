package types

import "math"

// MatchType records how a candidate was found.
type MatchType string

const (
	MatchExact          MatchType = "exact"
	MatchSynonym        MatchType = "synonym"
	MatchGraphExpansion MatchType = "graph_expansion"
	MatchPattern        MatchType = "pattern"
	MatchVector         MatchType = "vector"
)

// Level identifies the retrieval level that produced a candidate.
type Level int

const (
	LevelExact   Level = 1
	LevelGraph   Level = 2
	LevelPattern Level = 3
	LevelVector  Level = 4
)

// String returns the metadata name of the level.
func (l Level) String() string {
	switch l {
	case LevelExact:
		return "exact"
	case LevelGraph:
		return "graph"
	case LevelPattern:
		return "pattern"
	case LevelVector:
		return "vector"
	default:
		return "unknown"
	}
}

// ScoredItem is a retrieval candidate. Sub-scores are in [0,1]; FinalScore is
// set by the reranker.
type ScoredItem struct {
	Name       string         `json:"name" yaml:"name"`
	Label      Label          `json:"label" yaml:"label"`
	Summary    string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	TextMatch       float64 `json:"text_match" yaml:"text_match"`
	GraphRelevance  float64 `json:"graph_relevance" yaml:"graph_relevance"`
	DataQuality     float64 `json:"data_quality" yaml:"data_quality"`
	UsageFrequency  float64 `json:"usage_frequency" yaml:"usage_frequency"`
	BusinessContext float64 `json:"business_context" yaml:"business_context"`
	FinalScore      float64 `json:"final_score" yaml:"final_score"`

	MatchType   MatchType `json:"match_type" yaml:"match_type"`
	HopDistance int       `json:"hop_distance" yaml:"hop_distance"`
	SourceLevel Level     `json:"source_level" yaml:"source_level"`

	// Context holds the hydrated table view for Table candidates.
	Context *TableContext `json:"context,omitempty" yaml:"context,omitempty"`

	// Origin is the seed name a graph-expansion item was reached from.
	Origin     string   `json:"origin,omitempty" yaml:"origin,omitempty"`
	EdgeType   EdgeType `json:"edge_type,omitempty" yaml:"edge_type,omitempty"`
	TablesUsed []string `json:"tables_used,omitempty" yaml:"tables_used,omitempty"`
}

// Key returns the (Label, Name) identity used for deduplication.
func (s *ScoredItem) Key() string {
	return string(s.Label) + "\x00" + s.Name
}

// DefaultWeightEpsilon is the tolerance within which weights are considered
// to already sum to 1.
const DefaultWeightEpsilon = 1e-6

// RerankerWeights weights the five relevance signals. The fields always sum
// to 1 when built with NewRerankerWeights.
type RerankerWeights struct {
	TextMatch       float64 `json:"text_match" mapstructure:"text_match"`
	GraphRelevance  float64 `json:"graph_relevance" mapstructure:"graph_relevance"`
	DataQuality     float64 `json:"data_quality" mapstructure:"data_quality"`
	UsageFrequency  float64 `json:"usage_frequency" mapstructure:"usage_frequency"`
	BusinessContext float64 `json:"business_context" mapstructure:"business_context"`
}

// DefaultRerankerWeights returns the default weighting profile.
func DefaultRerankerWeights() RerankerWeights {
	return RerankerWeights{
		TextMatch:       0.30,
		GraphRelevance:  0.25,
		DataQuality:     0.20,
		UsageFrequency:  0.15,
		BusinessContext: 0.10,
	}
}

// NewRerankerWeights builds a weight profile, rescaling the inputs
// proportionally when they do not sum to 1. Negative inputs are treated as 0;
// an all-zero input yields the default profile.
func NewRerankerWeights(text, graph, quality, usage, business float64) RerankerWeights {
	return RerankerWeights{
		TextMatch:       text,
		GraphRelevance:  graph,
		DataQuality:     quality,
		UsageFrequency:  usage,
		BusinessContext: business,
	}.Normalize()
}

// Sum returns the total of the five weights.
func (w RerankerWeights) Sum() float64 {
	return w.TextMatch + w.GraphRelevance + w.DataQuality + w.UsageFrequency + w.BusinessContext
}

// Normalize returns a copy of w whose weights sum to 1.
func (w RerankerWeights) Normalize() RerankerWeights {
	w.TextMatch = math.Max(0, w.TextMatch)
	w.GraphRelevance = math.Max(0, w.GraphRelevance)
	w.DataQuality = math.Max(0, w.DataQuality)
	w.UsageFrequency = math.Max(0, w.UsageFrequency)
	w.BusinessContext = math.Max(0, w.BusinessContext)

	sum := w.Sum()
	if sum <= 0 {
		return DefaultRerankerWeights()
	}
	if math.Abs(sum-1) <= DefaultWeightEpsilon {
		return w
	}
	return RerankerWeights{
		TextMatch:       w.TextMatch / sum,
		GraphRelevance:  w.GraphRelevance / sum,
		DataQuality:     w.DataQuality / sum,
		UsageFrequency:  w.UsageFrequency / sum,
		BusinessContext: w.BusinessContext / sum,
	}
}

// Score computes the weighted sum of the item's sub-scores.
func (w RerankerWeights) Score(item *ScoredItem) float64 {
	return w.TextMatch*item.TextMatch +
		w.GraphRelevance*item.GraphRelevance +
		w.DataQuality*item.DataQuality +
		w.UsageFrequency*item.UsageFrequency +
		w.BusinessContext*item.BusinessContext
}
