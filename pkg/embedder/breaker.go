package embedder

import (
	"context"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/schemagraph/pkg/alert"
	"github.com/soundprediction/schemagraph/pkg/config"
)

// CircuitBreakerClient stops calling a failing provider until the breaker
// timeout elapses. Query embedding then fails fast and retrieval continues
// without the vector level.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
}

// NewCircuitBreakerClient wraps client. alerter may be nil.
func NewCircuitBreakerClient(client Client, cfg config.CircuitBreakerConfig, alerter alert.Alerter, name string) *CircuitBreakerClient {
	return &CircuitBreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(alert.BreakerSettings(name, "embedding", cfg, alerter, nil)),
	}
}

// Embed implements Client.
func (c *CircuitBreakerClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return alert.Guard(c.cb, func() ([][]float32, error) {
		return c.client.Embed(ctx, texts)
	})
}

// EmbedSingle implements Client.
func (c *CircuitBreakerClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return alert.Guard(c.cb, func() ([]float32, error) {
		return c.client.EmbedSingle(ctx, text)
	})
}

// State reports the breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State { return c.cb.State() }

func (c *CircuitBreakerClient) Dimensions() int { return c.client.Dimensions() }

func (c *CircuitBreakerClient) Close() error { return c.client.Close() }
