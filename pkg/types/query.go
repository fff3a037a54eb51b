package types

import (
	"strings"
	"time"
)

// Intent is the caller-declared purpose of a query.
type Intent string

const (
	IntentUnspecified           Intent = ""
	IntentRelationshipDiscovery Intent = "relationship_discovery"
	IntentKnowledgeLookup       Intent = "knowledge_lookup"
	IntentOther                 Intent = "other"
)

// ParseIntent maps free text onto a known intent. Unknown values become
// IntentOther; empty input stays unspecified.
func ParseIntent(s string) Intent {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return IntentUnspecified
	case string(IntentRelationshipDiscovery):
		return IntentRelationshipDiscovery
	case string(IntentKnowledgeLookup):
		return IntentKnowledgeLookup
	default:
		return IntentOther
	}
}

// Hints are pre-extracted signals supplied alongside a query.
type Hints struct {
	Database      string   `json:"database,omitempty" yaml:"database,omitempty"`
	Domain        string   `json:"domain,omitempty" yaml:"domain,omitempty"`
	Intent        Intent   `json:"intent,omitempty" yaml:"intent,omitempty"`
	Entities      []string `json:"entities,omitempty" yaml:"entities,omitempty"`
	BusinessTerms []string `json:"business_terms,omitempty" yaml:"business_terms,omitempty"`
	ColumnHints   []string `json:"column_hints,omitempty" yaml:"column_hints,omitempty"`

	// TopK caps the ranked output. Zero selects the engine default.
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	// Threshold is the minimum vector similarity. Zero selects the default.
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`

	IncludePatterns bool `json:"include_patterns,omitempty" yaml:"include_patterns,omitempty"`
	// IncludeContext controls table context hydration; nil means true.
	IncludeContext *bool `json:"include_context,omitempty" yaml:"include_context,omitempty"`
	SkipVector     bool  `json:"skip_vector,omitempty" yaml:"skip_vector,omitempty"`
}

// ContextIncluded reports whether table context hydration is requested.
func (h Hints) ContextIncluded() bool {
	return h.IncludeContext == nil || *h.IncludeContext
}

// SchemaElement is one ranked entry in a result bucket.
type SchemaElement struct {
	Name       string         `json:"name" yaml:"name"`
	Label      Label          `json:"label" yaml:"label"`
	Summary    string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Score      float64        `json:"score" yaml:"score"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Related    []string       `json:"related,omitempty" yaml:"related,omitempty"`
}

// QueryAnalysis echoes the input and the hints actually used.
type QueryAnalysis struct {
	Query          string   `json:"query" yaml:"query"`
	Hints          Hints    `json:"hints" yaml:"hints"`
	SearchTerms    []string `json:"search_terms,omitempty" yaml:"search_terms,omitempty"`
	TargetDomain   string   `json:"target_domain,omitempty" yaml:"target_domain,omitempty"`
	DomainInferred bool     `json:"domain_inferred" yaml:"domain_inferred"`
}

// State is a retrieval pipeline state.
type State string

const (
	StateInit         State = "init"
	StateLevel1Done   State = "level1_done"
	StateEarlyStop    State = "early_stop"
	StateDeeperLevels State = "deeper_levels"
	StateEnriched     State = "enriched"
	StateReranked     State = "reranked"
	StateDone         State = "done"
	StateFallbackDone State = "fallback_done"
)

// Fallback stages recorded in SearchMetadata.FallbackStage.
const (
	FallbackRelaxed         = "relaxed_search"
	FallbackDomainDiscovery = "domain_discovery"
)

// SearchMetadata explains how a result was produced.
type SearchMetadata struct {
	Elapsed             time.Duration     `json:"elapsed" yaml:"elapsed"`
	LevelsExecuted      []string          `json:"levels_executed" yaml:"levels_executed"`
	LevelCounts         map[string]int    `json:"level_counts,omitempty" yaml:"level_counts,omitempty"`
	CandidateCount      int               `json:"candidate_count" yaml:"candidate_count"`
	ResultCount         int               `json:"result_count" yaml:"result_count"`
	FallbackTriggered   bool              `json:"fallback_triggered" yaml:"fallback_triggered"`
	FallbackStage       string            `json:"fallback_stage,omitempty" yaml:"fallback_stage,omitempty"`
	EarlyStopped        bool              `json:"early_stopped" yaml:"early_stopped"`
	VectorSearchSkipped bool              `json:"vector_search_skipped" yaml:"vector_search_skipped"`
	LevelErrors         map[string]string `json:"level_errors,omitempty" yaml:"level_errors,omitempty"`
	FinalState          State             `json:"final_state" yaml:"final_state"`
}

// SchemaSearchResult is the engine's output.
type SchemaSearchResult struct {
	Tables           []SchemaElement `json:"tables" yaml:"tables"`
	Columns          []SchemaElement `json:"columns" yaml:"columns"`
	Entities         []SchemaElement `json:"entities" yaml:"entities"`
	Patterns         []SchemaElement `json:"patterns" yaml:"patterns"`
	Context          []TableContext  `json:"context" yaml:"context"`
	RankedResults    []ScoredItem    `json:"ranked_results" yaml:"ranked_results"`
	SuggestedDomains []DomainSummary `json:"suggested_domains,omitempty" yaml:"suggested_domains,omitempty"`
	QueryAnalysis    QueryAnalysis   `json:"query_analysis" yaml:"query_analysis"`
	SearchMetadata   SearchMetadata  `json:"search_metadata" yaml:"search_metadata"`
}

// NewSchemaSearchResult returns a result with every list initialized, so an
// empty result serializes as empty arrays rather than null.
func NewSchemaSearchResult(query string, hints Hints) *SchemaSearchResult {
	return &SchemaSearchResult{
		Tables:        []SchemaElement{},
		Columns:       []SchemaElement{},
		Entities:      []SchemaElement{},
		Patterns:      []SchemaElement{},
		Context:       []TableContext{},
		RankedResults: []ScoredItem{},
		QueryAnalysis: QueryAnalysis{Query: query, Hints: hints},
		SearchMetadata: SearchMetadata{
			LevelsExecuted: []string{},
			FinalState:     StateInit,
		},
	}
}
