package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Neo4jStore implements GraphStore for Neo4j databases.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
	closed   atomic.Bool
}

// NewNeo4jStore creates a new Neo4j store instance.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jStore{
		client:   client,
		database: database,
		logger:   slog.Default(),
	}, nil
}

// SetLogger replaces the store logger.
func (n *Neo4jStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		n.logger = logger
	}
}

// Execute runs query inside a managed read transaction.
func (n *Neo4jStore) Execute(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	if n.closed.Load() {
		return nil, ErrStoreClosed
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		n.logger.Debug("neo4j query failed", "error", err, "params", truncateParams(params))
		return nil, fmt.Errorf("failed to execute neo4j query: %w", err)
	}

	records, err := MustRecordSlice(result, "result")
	if err != nil {
		return nil, err
	}
	return convertNeo4jRecords(records), nil
}

// HealthCheck verifies the server is reachable.
func (n *Neo4jStore) HealthCheck(ctx context.Context) error {
	if err := n.client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to reach neo4j: %w", err)
	}
	return nil
}

// Provider returns GraphProviderNeo4j.
func (n *Neo4jStore) Provider() GraphProvider {
	return GraphProviderNeo4j
}

// Close closes the underlying driver.
func (n *Neo4jStore) Close(ctx context.Context) error {
	if n.closed.Swap(true) {
		return nil
	}
	return n.client.Close(ctx)
}

func convertNeo4jRecords(records []*db.Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		row := make(Record, len(rec.Keys))
		for i, key := range rec.Keys {
			if i < len(rec.Values) {
				row[key] = normalizeNeo4jValue(rec.Values[i])
			}
		}
		out = append(out, row)
	}
	return out
}

// normalizeNeo4jValue flattens driver graph types into plain maps and lists.
func normalizeNeo4jValue(v any) any {
	switch val := v.(type) {
	case dbtype.Node:
		return normalizeNeo4jValue(val.Props)
	case dbtype.Relationship:
		props := normalizeNeo4jValue(val.Props).(map[string]any)
		props["type"] = val.Type
		return props
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeNeo4jValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeNeo4jValue(item)
		}
		return out
	default:
		return v
	}
}
