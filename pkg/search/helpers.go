package search

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/types"
)

// Predefined reranker weight profiles.
var (
	// BalancedWeights is the default profile.
	BalancedWeights = types.DefaultRerankerWeights()
	// LexicalWeights favors direct name matches.
	LexicalWeights = types.NewRerankerWeights(0.50, 0.20, 0.15, 0.05, 0.10)
	// CuratedWeights favors documented, certified tables in the right domain.
	CuratedWeights = types.NewRerankerWeights(0.20, 0.15, 0.30, 0.10, 0.25)
	// PopularWeights favors what past queries used successfully.
	PopularWeights = types.NewRerankerWeights(0.25, 0.15, 0.15, 0.35, 0.10)
)

var weightProfiles = map[string]types.RerankerWeights{
	"balanced": BalancedWeights,
	"lexical":  LexicalWeights,
	"curated":  CuratedWeights,
	"popular":  PopularWeights,
}

// GetWeightProfileByName returns a predefined weight profile by name.
func GetWeightProfileByName(name string) (types.RerankerWeights, bool) {
	w, ok := weightProfiles[strings.ToLower(strings.TrimSpace(name))]
	return w, ok
}

// ListWeightProfiles returns the names of all predefined weight profiles.
func ListWeightProfiles() []string {
	names := make([]string, 0, len(weightProfiles))
	for name := range weightProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResultToContextString reformats a search result into a single string to
// pass directly to an LLM as schema context.
func ResultToContextString(result *types.SchemaSearchResult, ensureASCII bool) (string, error) {
	if result == nil {
		return "", nil
	}

	tableJSON := make([]map[string]any, 0, len(result.Context))
	for _, tc := range result.Context {
		columns := make([]map[string]any, 0, len(tc.Columns))
		for _, c := range tc.Columns {
			col := map[string]any{"name": c.Name}
			if c.Type != "" {
				col["type"] = c.Type
			}
			if c.Description != "" {
				col["description"] = c.Description
			}
			if c.IsPrimaryKey {
				col["primary_key"] = true
			}
			if c.IsPartition {
				col["partition"] = true
			}
			columns = append(columns, col)
		}
		table := map[string]any{
			"table":       tc.Table,
			"description": tc.Description,
			"columns":     columns,
		}
		if tc.Domain != "" {
			table["domain"] = tc.Domain
		}
		if len(tc.RelatedTables) > 0 {
			table["related_tables"] = tc.RelatedTables
		}
		if len(tc.BusinessRules) > 0 {
			table["business_rules"] = tc.BusinessRules
		}
		tableJSON = append(tableJSON, table)
	}

	elementJSON := func(elements []types.SchemaElement) []map[string]any {
		out := make([]map[string]any, 0, len(elements))
		for _, el := range elements {
			out = append(out, map[string]any{
				"name":    el.Name,
				"summary": el.Summary,
				"score":   fmt.Sprintf("%.4f", el.Score),
			})
		}
		return out
	}

	tablesStr, err := toPromptJSON(tableJSON, ensureASCII, 12)
	if err != nil {
		return "", fmt.Errorf("failed to marshal table JSON: %w", err)
	}
	entitiesStr, err := toPromptJSON(elementJSON(result.Entities), ensureASCII, 12)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entity JSON: %w", err)
	}
	columnsStr, err := toPromptJSON(elementJSON(result.Columns), ensureASCII, 12)
	if err != nil {
		return "", fmt.Errorf("failed to marshal column JSON: %w", err)
	}
	patternsStr, err := toPromptJSON(elementJSON(result.Patterns), ensureASCII, 12)
	if err != nil {
		return "", fmt.Errorf("failed to marshal pattern JSON: %w", err)
	}

	return fmt.Sprintf(`
    TABLES are the schema elements most relevant to the question, with their columns.
    ENTITIES are business concepts mapped onto those tables.
    PATTERNS are previously successful queries over similar questions.
    <TABLES>
%s
    </TABLES>
    <COLUMNS>
%s
    </COLUMNS>
    <ENTITIES>
%s
    </ENTITIES>
    <PATTERNS>
%s
    </PATTERNS>`, tablesStr, columnsStr, entitiesStr, patternsStr), nil
}

// toPromptJSON converts data to JSON with proper indentation for LLM prompts
func toPromptJSON(data any, ensureASCII bool, indent int) (string, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return "", err
	}
	jsonStr := string(jsonBytes)

	if ensureASCII {
		var b strings.Builder
		for _, r := range jsonStr {
			if r > 127 {
				fmt.Fprintf(&b, "\\u%04x", r)
			} else {
				b.WriteRune(r)
			}
		}
		jsonStr = b.String()
	}

	indentStr := strings.Repeat(" ", indent)
	lines := strings.Split(jsonStr, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = indentStr + line
		}
	}
	return strings.Join(lines, "\n"), nil
}
