package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/config"
)

// GraphProvider represents the type of graph database provider
type GraphProvider string

const (
	GraphProviderNeo4j   GraphProvider = "neo4j"
	GraphProviderLadybug GraphProvider = "ladybug"
)

var (
	// ErrStoreClosed is returned by Execute after Close.
	ErrStoreClosed = errors.New("graph store is closed")
	// ErrUnknownProvider is returned by NewStore for an unsupported driver name.
	ErrUnknownProvider = errors.New("unknown graph provider")
)

// Record is one result row keyed by projected column name.
type Record map[string]any

// GraphStore executes parameterized read queries against a schema graph.
type GraphStore interface {
	Execute(ctx context.Context, query string, params map[string]any) ([]Record, error)
	Provider() GraphProvider
	Close(ctx context.Context) error
}

// HealthChecker is implemented by stores that can verify connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewStore opens the store selected by cfg.Driver.
func NewStore(cfg config.DatabaseConfig, logger *slog.Logger) (GraphStore, error) {
	switch GraphProvider(strings.ToLower(cfg.Driver)) {
	case GraphProviderNeo4j, "":
		store, err := NewNeo4jStore(cfg.URI, cfg.Username, cfg.Password, cfg.Database)
		if err != nil {
			return nil, err
		}
		store.SetLogger(logger)
		return store, nil
	case GraphProviderLadybug:
		lbCfg := DefaultLadybugConfig()
		if cfg.URI != "" {
			lbCfg.DBPath = cfg.URI
		}
		lbCfg.Logger = logger
		store, err := NewLadybugStore(lbCfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Driver)
	}
}

func truncateParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for key, value := range params {
		switch v := value.(type) {
		case []any:
			if len(v) > 5 {
				out[key] = v[:5]
				continue
			}
		case []float32:
			if len(v) > 5 {
				out[key] = v[:5]
				continue
			}
		}
		out[key] = value
	}
	return out
}
