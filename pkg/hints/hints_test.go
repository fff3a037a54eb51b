package hints

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/soundprediction/schemagraph/pkg/config"
	"github.com/soundprediction/schemagraph/pkg/gliner"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordAnalyzer(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		intent   types.Intent
		entities []string
		columns  []string
		database string
	}{
		{
			name:     "column after marker",
			query:    "customer accounts with balance over 1000",
			entities: []string{"customer", "account"},
			columns:  []string{"balance"},
		},
		{
			name:     "relationship",
			query:    "How are orders joined to customers?",
			intent:   types.IntentRelationshipDiscovery,
			entities: []string{"order", "customer"},
		},
		{
			name:     "lookup",
			query:    "What is churn rate",
			intent:   types.IntentKnowledgeLookup,
			entities: []string{"churn", "rate"},
		},
		{
			name:     "qualified table",
			query:    "revenue by region from sales.orders",
			entities: []string{"revenue", "sales.orders"},
			columns:  []string{"region"},
			database: "sales",
		},
		{
			name:    "snake case column",
			query:   "created_at",
			columns: []string{"created_at"},
		},
		{
			name:     "singular forms",
			query:    "categories addresses branches status",
			entities: []string{"category", "address", "branch", "status"},
		},
	}

	a := NewKeywordAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := a.Analyze(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, h.Intent)
			assert.Equal(t, tt.entities, h.Entities)
			assert.Equal(t, tt.columns, h.ColumnHints)
			assert.Equal(t, tt.database, h.Database)
		})
	}
}

func TestKeywordAnalyzerEmpty(t *testing.T) {
	h, err := NewKeywordAnalyzer().Analyze(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, types.Hints{}, h)
}

func TestMerge(t *testing.T) {
	explicit := types.Hints{Domain: "account", TopK: 3, Entities: []string{"Customer"}}
	inferred := types.Hints{
		Domain:        "sales",
		Database:      "bank",
		Intent:        types.IntentKnowledgeLookup,
		Entities:      []string{"customer", "account"},
		BusinessTerms: []string{"revenue"},
		ColumnHints:   []string{"balance"},
		TopK:          9,
		SkipVector:    true,
	}

	got := Merge(explicit, inferred)
	assert.Equal(t, "account", got.Domain)
	assert.Equal(t, "bank", got.Database)
	assert.Equal(t, types.IntentKnowledgeLookup, got.Intent)
	assert.Equal(t, []string{"Customer"}, got.Entities)
	assert.Equal(t, []string{"revenue"}, got.BusinessTerms)
	assert.Equal(t, []string{"balance"}, got.ColumnHints)
	assert.Equal(t, 3, got.TopK)
	assert.False(t, got.SkipVector)
}

type fakeExtractor struct {
	spans  []gliner.Entity
	err    error
	labels []string
}

func (f *fakeExtractor) ExtractEntities(text string, labels []string) ([]gliner.Entity, error) {
	f.labels = labels
	return f.spans, f.err
}

func TestGlinerAnalyzer(t *testing.T) {
	ext := &fakeExtractor{spans: []gliner.Entity{
		{Text: "orders", Label: "table", Score: 0.9},
		{Text: "Customer", Label: "business entity", Score: 0.8},
		{Text: "order_date", Label: "column", Score: 0.7},
		{Text: "monthly revenue", Label: "metric", Score: 0.6},
		{Text: "noise", Label: "table", Score: 0.2},
		{Text: "Orders", Label: "table", Score: 0.9},
	}}
	a := NewGlinerAnalyzer(ext, nil)
	a.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	h, err := a.Analyze(context.Background(), "monthly revenue of orders joined with Customer by order_date")
	require.NoError(t, err)
	assert.Equal(t, DefaultGlinerLabels, ext.labels)
	assert.Equal(t, []string{"orders", "Customer"}, h.Entities)
	assert.Equal(t, []string{"order_date"}, h.ColumnHints)
	assert.Equal(t, []string{"monthly revenue"}, h.BusinessTerms)
	assert.Equal(t, types.IntentRelationshipDiscovery, h.Intent)

	a.SetMinScore(0.85)
	h, err = a.Analyze(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, h.Entities)
	assert.Nil(t, h.ColumnHints)
}

func TestGlinerAnalyzerError(t *testing.T) {
	boom := errors.New("model crashed")
	a := NewGlinerAnalyzer(&fakeExtractor{err: boom}, []string{"table"})
	_, err := a.Analyze(context.Background(), "orders")
	assert.ErrorIs(t, err, boom)

	explicit := types.Hints{Domain: "sales"}
	got := Enrich(context.Background(), a, "orders", explicit, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, explicit, got)
}

func TestEnrich(t *testing.T) {
	got := Enrich(context.Background(), NewKeywordAnalyzer(), "accounts by region", types.Hints{Domain: "bank"}, nil)
	assert.Equal(t, "bank", got.Domain)
	assert.Equal(t, []string{"account"}, got.Entities)
	assert.Equal(t, []string{"region"}, got.ColumnHints)

	assert.Equal(t, types.Hints{TopK: 2}, Enrich(context.Background(), nil, "q", types.Hints{TopK: 2}, nil))
}

func TestNew(t *testing.T) {
	a, err := New(config.HintsConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, a)

	a, err = New(config.HintsConfig{Analyzer: "Keyword"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &KeywordAnalyzer{}, a)

	_, err = New(config.HintsConfig{Analyzer: "llm"}, nil)
	assert.Error(t, err)

	_, err = New(config.HintsConfig{Analyzer: "gliner"}, nil)
	assert.Error(t, err, "a model is required")
}
