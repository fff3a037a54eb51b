//go:build cgo

package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ladybug "github.com/LadybugDB/go-ladybug"
)

// LadybugConfig holds configuration options for LadybugStore
type LadybugConfig struct {
	// Database path (defaults to ":memory:")
	DBPath string

	// Maximum threads used by the engine (defaults to 1)
	MaxConcurrentQueries int

	// Buffer pool size in bytes (defaults to 1GB)
	BufferPoolSize uint64

	// Enable compression (defaults to true)
	EnableCompression bool

	// Maximum database size in bytes (defaults to 8TB)
	MaxDbSize uint64

	// ReadOnly opens the database without write access. The schema is not
	// bootstrapped in read-only mode.
	ReadOnly bool

	Logger *slog.Logger
}

// DefaultLadybugConfig returns a LadybugConfig with sensible defaults
func DefaultLadybugConfig() *LadybugConfig {
	return &LadybugConfig{
		DBPath:               ":memory:",
		MaxConcurrentQueries: 1,
		BufferPoolSize:       1024 * 1024 * 1024, // 1GB
		EnableCompression:    true,
		MaxDbSize:            1 << 43, // 8TB
	}
}

// LadybugStore implements GraphStore on an embedded Ladybug database.
type LadybugStore struct {
	db         *ladybug.Database
	conn       *ladybug.Connection
	dbPath     string
	tempDbPath string // non-empty when a locked database was copied aside
	logger     *slog.Logger

	// the ladybug C++ connection is not safe for concurrent use
	mu     sync.Mutex
	closed bool
}

// NewLadybugStore opens (or creates) the database at config.DBPath.
//
// If the database is locked by another process, the store copies it to a
// temporary location and opens the copy instead.
func NewLadybugStore(config *LadybugConfig) (*LadybugStore, error) {
	if config == nil {
		config = DefaultLadybugConfig()
	}
	if config.DBPath == "" {
		config.DBPath = ":memory:"
	}
	if config.MaxConcurrentQueries <= 0 {
		config.MaxConcurrentQueries = 1
	}
	if config.BufferPoolSize == 0 {
		config.BufferPoolSize = 1024 * 1024 * 1024
	}
	if config.MaxDbSize == 0 {
		config.MaxDbSize = 1 << 43
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	systemConfig := ladybug.SystemConfig{
		BufferPoolSize:    config.BufferPoolSize,
		MaxNumThreads:     uint64(config.MaxConcurrentQueries),
		EnableCompression: config.EnableCompression,
		ReadOnly:          config.ReadOnly,
		MaxDbSize:         config.MaxDbSize,
	}

	path := config.DBPath
	tempDbPath := ""
	database, err := ladybug.OpenDatabase(path, systemConfig)
	if err != nil {
		if !isLockError(err) || path == ":memory:" {
			return nil, fmt.Errorf("failed to open ladybug database: %w", err)
		}

		logger.Warn("ladybug database is locked, opening a temporary copy", "path", path)
		tempDir, mkErr := os.MkdirTemp("", "ladybug_readonly_*")
		if mkErr != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", mkErr)
		}
		tempDbPath = filepath.Join(tempDir, filepath.Base(path))
		if cpErr := copyDir(path, tempDbPath); cpErr != nil {
			os.RemoveAll(tempDir)
			return nil, fmt.Errorf("failed to copy database to temp location: %w", cpErr)
		}
		database, err = ladybug.OpenDatabase(tempDbPath, systemConfig)
		if err != nil {
			os.RemoveAll(tempDir)
			return nil, fmt.Errorf("failed to open temporary database copy: %w", err)
		}
		path = tempDbPath
	}

	conn, err := ladybug.OpenConnection(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open ladybug connection: %w", err)
	}

	store := &LadybugStore{
		db:         database,
		conn:       conn,
		dbPath:     path,
		tempDbPath: tempDbPath,
		logger:     logger,
	}

	if !config.ReadOnly {
		if err := store.EnsureSchema(context.Background()); err != nil {
			store.Close(context.Background())
			return nil, err
		}
	}
	return store, nil
}

// EnsureSchema creates the node and relationship tables if they are missing.
func (k *LadybugStore) EnsureSchema(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, stmt := range strings.Split(LadybugSchemaQueries, ";") {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		res, err := k.conn.Query(stmt + ";")
		if err != nil {
			return fmt.Errorf("failed to create ladybug schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// Execute translates query to the Ladybug dialect and runs it.
func (k *LadybugStore) Execute(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrStoreClosed
	}
	// the wait for the mutex may have outlived the caller
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	cypher := TranslateCypher(query)

	var (
		results *ladybug.QueryResult
		err     error
	)
	if len(params) > 0 {
		stmt, prepErr := k.conn.Prepare(cypher)
		if prepErr != nil {
			k.logger.Debug("failed to prepare ladybug query", "error", prepErr, "params", truncateParams(params))
			return nil, fmt.Errorf("failed to prepare ladybug query: %w", prepErr)
		}
		results, err = k.conn.Execute(stmt, params)
	} else {
		results, err = k.conn.Query(cypher)
	}
	if err != nil {
		k.logger.Debug("ladybug query failed", "error", err, "params", truncateParams(params))
		return nil, fmt.Errorf("failed to execute ladybug query: %w", err)
	}
	defer results.Close()

	columnNames := results.GetColumnNames()
	var records []Record
	for results.HasNext() {
		row, err := results.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to read ladybug row: %w", err)
		}
		values, err := row.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("failed to decode ladybug row: %w", err)
		}

		rec := make(Record, len(columnNames))
		for i, value := range values {
			if i < len(columnNames) {
				rec[columnNames[i]] = value
			}
		}
		records = append(records, rec)
	}

	k.logger.Debug("ladybug query complete", "rows", len(records), "elapsed", time.Since(start))
	return records, nil
}

// HealthCheck runs a trivial query.
func (k *LadybugStore) HealthCheck(ctx context.Context) error {
	_, err := k.Execute(ctx, "RETURN 1 AS ok", nil)
	return err
}

// Provider returns GraphProviderLadybug.
func (k *LadybugStore) Provider() GraphProvider {
	return GraphProviderLadybug
}

// Close releases the connection and database. A temporary copy made for a
// locked database is removed.
func (k *LadybugStore) Close(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true

	if k.conn != nil {
		k.conn.Close()
	}
	if k.db != nil {
		k.db.Close()
	}
	if k.tempDbPath != "" {
		if err := os.RemoveAll(filepath.Dir(k.tempDbPath)); err != nil {
			return fmt.Errorf("failed to remove temporary database copy: %w", err)
		}
	}
	return nil
}
