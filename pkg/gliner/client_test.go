package gliner

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankSpans(t *testing.T) {
	got := rankSpans([]Entity{
		{Text: "orders", Label: "table", Score: 0.6},
		{Text: "  ", Label: "table", Score: 0.99},
		{Text: "revenue", Label: "metric", Score: 0.9},
		{Text: "Orders ", Label: "table", Score: 0.8},
		{Text: "orders", Label: "business entity", Score: 0.4},
	})
	assert.Equal(t, []Entity{
		{Text: "revenue", Label: "metric", Score: 0.9},
		{Text: "Orders", Label: "table", Score: 0.8},
		{Text: "orders", Label: "business entity", Score: 0.4},
	}, got)
	assert.Empty(t, rankSpans(nil))
}

func TestExtractBatchWithoutModel(t *testing.T) {
	c := &Client{}

	out, err := c.ExtractBatch(nil, []string{"table"})
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = c.ExtractBatch([]string{"orders"}, nil)
	assert.Error(t, err)

	_, err = c.ExtractEntities("orders", []string{"table"})
	assert.ErrorIs(t, err, ErrModelNotLoaded)
	assert.NoError(t, c.Close())
}

// Downloads the model on first use; set GLINER_MODEL to run.
func TestClient(t *testing.T) {
	modelID := os.Getenv("GLINER_MODEL")
	if modelID == "" || testing.Short() {
		t.Skip("GLINER_MODEL not set")
	}

	c, err := NewClient(modelID)
	require.NoError(t, err)
	defer c.Close()

	ents, err := c.ExtractEntities("monthly revenue per customer segment from the orders table",
		[]string{"table", "business entity", "metric"})
	require.NoError(t, err)
	assert.NotEmpty(t, ents)

	batch, err := c.ExtractBatch([]string{"orders", "customers by region"}, []string{"table"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	require.NoError(t, c.Close())
	_, err = c.ExtractEntities("orders", []string{"table"})
	assert.ErrorIs(t, err, ErrModelNotLoaded)
}

func TestNewClientRequiresModel(t *testing.T) {
	_, err := NewClient(" ")
	assert.Error(t, err)
}
