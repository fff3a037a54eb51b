package driver

import (
	"context"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/schemagraph/pkg/alert"
	"github.com/soundprediction/schemagraph/pkg/config"
)

// CircuitBreakerStore rejects queries while the wrapped store keeps failing.
// Retrieval levels see the rejection as a level error and carry on.
type CircuitBreakerStore struct {
	store GraphStore
	cb    *gobreaker.CircuitBreaker
}

// NewCircuitBreakerStore wraps store. The breaker is named after the provider
// when name is empty, and alerter is notified when it opens.
func NewCircuitBreakerStore(store GraphStore, cfg config.CircuitBreakerConfig, alerter alert.Alerter, name string) *CircuitBreakerStore {
	if name == "" {
		name = string(store.Provider())
	}
	return &CircuitBreakerStore{
		store: store,
		cb:    gobreaker.NewCircuitBreaker(alert.BreakerSettings(name, "graph store", cfg, alerter, nil)),
	}
}

// Execute implements GraphStore.
func (c *CircuitBreakerStore) Execute(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	return alert.Guard(c.cb, func() ([]Record, error) {
		return c.store.Execute(ctx, query, params)
	})
}

// State reports the breaker state.
func (c *CircuitBreakerStore) State() gobreaker.State {
	return c.cb.State()
}

// HealthCheck bypasses the breaker so readiness probes see the real store.
func (c *CircuitBreakerStore) HealthCheck(ctx context.Context) error {
	if hc, ok := c.store.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CircuitBreakerStore) Provider() GraphProvider { return c.store.Provider() }

func (c *CircuitBreakerStore) Close(ctx context.Context) error { return c.store.Close(ctx) }
