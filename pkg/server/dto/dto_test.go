package dto

import (
	"strings"
	"testing"

	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  SearchRequest
		err  error
	}{
		{"valid", SearchRequest{Query: "orders", TopK: 5, Threshold: 0.4}, nil},
		{"blank", SearchRequest{Query: "  "}, ErrEmptyQuery},
		{"too long", SearchRequest{Query: strings.Repeat("q", MaxQueryLength+1)}, ErrQueryTooLong},
		{"negative top_k", SearchRequest{Query: "q", TopK: -1}, ErrInvalidTopK},
		{"huge top_k", SearchRequest{Query: "q", TopK: 1000}, ErrInvalidTopK},
		{"threshold", SearchRequest{Query: "q", Threshold: 1.5}, ErrInvalidScore},
		{"hints", SearchRequest{Query: "q", Entities: make([]string, MaxHintEntries+1)}, ErrTooManyHints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSearchRequestHints(t *testing.T) {
	off := false
	req := SearchRequest{
		Query:          "q",
		Domain:         " account ",
		Intent:         "Relationship_Discovery",
		Entities:       []string{"Customer"},
		TopK:           3,
		IncludeContext: &off,
	}
	h := req.Hints()
	assert.Equal(t, "account", h.Domain)
	assert.Equal(t, types.IntentRelationshipDiscovery, h.Intent)
	assert.Equal(t, []string{"Customer"}, h.Entities)
	assert.Equal(t, 3, h.TopK)
	assert.False(t, h.ContextIncluded())
}

func TestSearchByLabelRequestValidate(t *testing.T) {
	label, err := (&SearchByLabelRequest{Label: "business_entity", Text: "client"}).Validate()
	require.NoError(t, err)
	assert.Equal(t, types.LabelBusinessEntity, label)

	_, err = (&SearchByLabelRequest{Label: "Domain", Text: "x"}).Validate()
	assert.ErrorIs(t, err, types.ErrInvalidLabel)
	_, err = (&SearchByLabelRequest{Label: "Widget", Text: "x"}).Validate()
	assert.ErrorIs(t, err, types.ErrInvalidLabel)
	_, err = (&SearchByLabelRequest{Label: "Table", Text: " "}).Validate()
	assert.ErrorIs(t, err, ErrEmptySearchKey)
	_, err = (&SearchByLabelRequest{Label: "Table", Text: "x", TopK: -3}).Validate()
	assert.ErrorIs(t, err, ErrInvalidTopK)
}
