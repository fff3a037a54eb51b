package search

import (
	"strings"
	"testing"

	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightProfiles(t *testing.T) {
	assert.Equal(t, []string{"balanced", "curated", "lexical", "popular"}, ListWeightProfiles())

	for _, name := range ListWeightProfiles() {
		w, ok := GetWeightProfileByName(name)
		require.True(t, ok, name)
		assert.InDelta(t, 1.0, w.Sum(), 1e-9, name)
	}

	w, ok := GetWeightProfileByName(" Lexical ")
	require.True(t, ok)
	assert.Equal(t, LexicalWeights, w)

	_, ok = GetWeightProfileByName("fastest")
	assert.False(t, ok)
}

func TestResultToContextString(t *testing.T) {
	out, err := ResultToContextString(nil, false)
	require.NoError(t, err)
	assert.Empty(t, out)

	result := types.NewSchemaSearchResult("balances", types.Hints{})
	result.Context = []types.TableContext{{
		Table:       "bank.account",
		Description: "Comptes clients",
		Domain:      "account",
		Columns: []types.ColumnInfo{
			{Name: "account_id", Type: "bigint", IsPrimaryKey: true},
			{Name: "solde", Description: "solde après opérations"},
		},
	}}
	result.Entities = []types.SchemaElement{{Name: "Customer", Summary: "holder", Score: 0.8}}

	out, err = ResultToContextString(result, false)
	require.NoError(t, err)
	assert.Contains(t, out, "<TABLES>")
	assert.Contains(t, out, `"table": "bank.account"`)
	assert.Contains(t, out, `"primary_key": true`)
	assert.Contains(t, out, `"score": "0.8000"`)
	assert.Contains(t, out, "après")

	ascii, err := ResultToContextString(result, true)
	require.NoError(t, err)
	assert.NotContains(t, ascii, "après")
	assert.Contains(t, ascii, `apr\u00e8s`)
	for _, r := range ascii {
		assert.Less(t, r, rune(128))
	}

	blocks := []string{"<TABLES>", "<COLUMNS>", "<ENTITIES>", "<PATTERNS>"}
	last := -1
	for _, b := range blocks {
		idx := strings.Index(out, b)
		assert.Greater(t, idx, last, b)
		last = idx
	}
}

func TestParseAttributes(t *testing.T) {
	assert.Nil(t, parseAttributes(nil))
	assert.Nil(t, parseAttributes(""))
	assert.Nil(t, parseAttributes("{}"))
	assert.Nil(t, parseAttributes(map[string]any{}))
	assert.Nil(t, parseAttributes(42))

	assert.Equal(t, map[string]any{"owner": "crm"}, parseAttributes(`{"owner": "crm"}`))
	assert.Equal(t, map[string]any{"owner": "crm", "certified": true}, parseAttributes(`{"owner": "crm", "certified": true,}`))

	in := map[string]any{"a": 1}
	out := parseAttributes(in)
	out["b"] = 2
	assert.NotContains(t, in, "b")
}

func TestAttrStrings(t *testing.T) {
	attrs := map[string]any{
		"list":   []any{"a", "b"},
		"typed":  []string{"x"},
		"joined": "p, q ,",
	}
	assert.Equal(t, []string{"a", "b"}, attrStrings(attrs, "list"))
	assert.Equal(t, []string{"x"}, attrStrings(attrs, "typed"))
	assert.Equal(t, []string{"p", "q"}, attrStrings(attrs, "joined"))
	assert.Nil(t, attrStrings(attrs, "missing"))
}
