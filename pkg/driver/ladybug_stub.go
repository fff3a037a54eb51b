//go:build !cgo

package driver

import (
	"context"
	"errors"
	"log/slog"
)

// ErrCGORequired is returned when Ladybug operations are called without CGO support
var ErrCGORequired = errors.New("ladybug driver requires CGO; build with CGO_ENABLED=1")

// LadybugConfig mirrors the cgo build so callers compile either way.
type LadybugConfig struct {
	DBPath               string
	MaxConcurrentQueries int
	BufferPoolSize       uint64
	EnableCompression    bool
	MaxDbSize            uint64
	ReadOnly             bool
	Logger               *slog.Logger
}

// DefaultLadybugConfig returns a LadybugConfig with sensible defaults
func DefaultLadybugConfig() *LadybugConfig {
	return &LadybugConfig{DBPath: ":memory:", MaxConcurrentQueries: 1, EnableCompression: true}
}

// LadybugStore is a stub implementation when CGO is disabled.
// All methods return ErrCGORequired.
type LadybugStore struct{}

// NewLadybugStore returns an error when CGO is disabled
func NewLadybugStore(config *LadybugConfig) (*LadybugStore, error) {
	return nil, ErrCGORequired
}

// EnsureSchema returns ErrCGORequired
func (k *LadybugStore) EnsureSchema(ctx context.Context) error {
	return ErrCGORequired
}

// Execute returns ErrCGORequired
func (k *LadybugStore) Execute(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	return nil, ErrCGORequired
}

// HealthCheck returns ErrCGORequired
func (k *LadybugStore) HealthCheck(ctx context.Context) error {
	return ErrCGORequired
}

// Provider returns GraphProviderLadybug
func (k *LadybugStore) Provider() GraphProvider {
	return GraphProviderLadybug
}

// Close returns nil
func (k *LadybugStore) Close(ctx context.Context) error {
	return nil
}
