package schemagraph

import (
	"context"

	"github.com/soundprediction/schemagraph/pkg/types"
)

// Retriever answers schema questions. Transports depend on it rather than on
// *Client.
type Retriever interface {
	Retrieve(ctx context.Context, query string, hints types.Hints) (*types.SchemaSearchResult, error)
	SearchByLabelText(ctx context.Context, label types.Label, text string, topK int, threshold float64, database string) ([]types.ScoredItem, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

var (
	_ Retriever     = (*Client)(nil)
	_ HealthChecker = (*Client)(nil)
)
