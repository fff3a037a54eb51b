package types

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors
var (
	ErrInvalidLabel = errors.New("invalid node label")
	ErrEmptyName    = errors.New("name cannot be empty")
	ErrEmptyUUID    = errors.New("uuid cannot be empty")
)

// Label identifies the kind of a schema graph node.
type Label string

const (
	LabelTable          Label = "Table"
	LabelColumn         Label = "Column"
	LabelBusinessEntity Label = "BusinessEntity"
	LabelQueryPattern   Label = "QueryPattern"
	LabelDomain         Label = "Domain"
	LabelBusinessRule   Label = "BusinessRule"
	LabelCodeSet        Label = "CodeSet"
)

// AllLabels lists every known label in declaration order.
var AllLabels = []Label{
	LabelTable,
	LabelColumn,
	LabelBusinessEntity,
	LabelQueryPattern,
	LabelDomain,
	LabelBusinessRule,
	LabelCodeSet,
}

// SearchableLabels are the labels that carry embeddings and take part in
// vector search, in the order their results are concatenated.
var SearchableLabels = []Label{
	LabelTable,
	LabelColumn,
	LabelBusinessEntity,
	LabelQueryPattern,
}

// ParseLabel converts a string into a Label. Matching is case-insensitive and
// ignores surrounding whitespace and underscores ("business_entity" is
// accepted).
func ParseLabel(s string) (Label, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "")
	for _, l := range AllLabels {
		if strings.ToLower(string(l)) == key {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLabel, s)
}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	for _, known := range AllLabels {
		if l == known {
			return true
		}
	}
	return false
}

// Searchable reports whether l takes part in vector search.
func (l Label) Searchable() bool {
	for _, known := range SearchableLabels {
		if l == known {
			return true
		}
	}
	return false
}

// EdgeType identifies the kind of a schema graph relationship.
type EdgeType string

const (
	EdgeHasColumn       EdgeType = "HAS_COLUMN"
	EdgeJoin            EdgeType = "JOIN"
	EdgeForeignKey      EdgeType = "FOREIGN_KEY"
	EdgeEntityMapping   EdgeType = "ENTITY_MAPPING"
	EdgeSynonym         EdgeType = "SYNONYM"
	EdgeBelongsToDomain EdgeType = "BELONGS_TO_DOMAIN"
	EdgeContainsEntity  EdgeType = "CONTAINS_ENTITY"
	EdgeAppliesTo       EdgeType = "APPLIES_TO"
	EdgeHasRule         EdgeType = "HAS_RULE"
	EdgeHasCodeSet      EdgeType = "HAS_CODESET"
	EdgeUsesTable       EdgeType = "USES_TABLE"
)

// TableExpansionEdges are the relationship types followed when expanding
// from a table seed.
var TableExpansionEdges = []EdgeType{EdgeJoin, EdgeForeignKey, EdgeBelongsToDomain}

// Node represents a vertex in the schema graph.
type Node struct {
	UUID       string         `json:"uuid"`
	Label      Label          `json:"label"`
	Name       string         `json:"name"`
	Summary    string         `json:"summary,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Embedding  []float32      `json:"embedding,omitempty"`
	GroupID    string         `json:"group_id,omitempty"`
}

// Validate checks if the Node has all required fields set.
func (n *Node) Validate() error {
	if n.UUID == "" {
		return ErrEmptyUUID
	}
	if n.Name == "" {
		return ErrEmptyName
	}
	if !n.Label.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, n.Label)
	}
	return nil
}

// Edge represents a typed, directed relationship between two nodes.
type Edge struct {
	UUID       string         `json:"uuid"`
	Type       EdgeType       `json:"type"`
	SourceUUID string         `json:"source_uuid"`
	TargetUUID string         `json:"target_uuid"`
	Fact       string         `json:"fact,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// AttrString returns the string attribute key, or "" when absent or not a
// string.
func AttrString(attrs map[string]any, key string) string {
	if attrs == nil {
		return ""
	}
	s, _ := attrs[key].(string)
	return strings.TrimSpace(s)
}

// AttrBool interprets attribute key as a boolean. Strings such as "true",
// "yes" and "1" are accepted.
func AttrBool(attrs map[string]any, key string) bool {
	if attrs == nil {
		return false
	}
	switch v := attrs[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			return true
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	}
	return false
}

// AttrFloat interprets attribute key as a number.
func AttrFloat(attrs map[string]any, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	switch v := attrs[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	}
	return 0, false
}

// AttrPresent reports whether attribute key holds a non-empty value.
func AttrPresent(attrs map[string]any, key string) bool {
	if attrs == nil {
		return false
	}
	switch v := attrs[key].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case bool:
		return v
	}
	return true
}
