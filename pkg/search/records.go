package search

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/soundprediction/schemagraph/pkg/driver"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

// parseAttributes decodes a node's attributes column. Stores that keep
// attributes as serialized JSON sometimes hold hand-edited payloads, so a
// failed decode is retried once after repair. Undecodable input yields nil.
func parseAttributes(v any) map[string]any {
	switch attrs := v.(type) {
	case nil:
		return nil
	case map[string]any:
		if len(attrs) == 0 {
			return nil
		}
		out := make(map[string]any, len(attrs))
		for k, val := range attrs {
			out[k] = val
		}
		return out
	case string:
		raw := strings.TrimSpace(attrs)
		if raw == "" || raw == "{}" || raw == "null" {
			return nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out
		}
		repaired, err := jsonrepair.JSONRepair(raw)
		if err != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			return nil
		}
		return out
	}
	return nil
}

// itemFromRecord builds an unscored candidate from a row projecting name,
// summary and attributes.
func itemFromRecord(rec driver.Record, label types.Label) types.ScoredItem {
	return types.ScoredItem{
		Name:       rec.String("name"),
		Label:      label,
		Summary:    rec.String("summary"),
		Attributes: parseAttributes(rec["attributes"]),
	}
}

// recordLabel resolves the label column of a traversal row, falling back to
// def when the store returned something unknown.
func recordLabel(rec driver.Record, def types.Label) types.Label {
	raw := rec.String("label")
	if raw == "" {
		return def
	}
	label, err := types.ParseLabel(raw)
	if err != nil {
		return def
	}
	return label
}

// attrStrings reads a list-valued attribute. Comma separated strings are
// accepted as well.
func attrStrings(attrs map[string]any, key string) []string {
	if attrs == nil {
		return nil
	}
	switch v := attrs[key].(type) {
	case []string:
		return v
	case []any:
		out, _ := driver.AsStringSlice(v)
		return out
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

// compactNames dedupes names case-insensitively and returns nil instead of an
// empty list.
func compactNames(values []string) []string {
	out := utils.DedupeFold(values)
	if len(out) == 0 {
		return nil
	}
	return out
}
