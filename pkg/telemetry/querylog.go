package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/schemagraph/pkg/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

var (
	ErrUnknownBackend   = errors.New("unknown query log backend")
	ErrInvalidTableName = errors.New("invalid query log table name")
	ErrQueryLogClosed   = errors.New("query log is closed")
)

// MissingQueryLog records questions the engine could not answer, together
// with the search terms it tried.
type MissingQueryLog interface {
	Record(ctx context.Context, query string, terms []string) error
}

// QueryLog is a MissingQueryLog owning resources.
type QueryLog interface {
	MissingQueryLog
	Close() error
}

// MissingQuery is one persisted missing-query entry.
type MissingQuery struct {
	ID        string    `parquet:"id" json:"id"`
	Timestamp time.Time `parquet:"timestamp" json:"timestamp"`
	Query     string    `parquet:"query" json:"query"`
	Terms     []string  `parquet:"terms,list" json:"terms"`
	RequestID string    `parquet:"request_id" json:"request_id,omitempty"`
	UserID    string    `parquet:"user_id" json:"user_id,omitempty"`
}

func newMissingQuery(ctx context.Context, query string, terms []string) MissingQuery {
	fields := fieldsFromContext(ctx)
	return MissingQuery{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Query:     query,
		Terms:     append([]string{}, terms...),
		RequestID: fields.RequestID,
		UserID:    fields.UserID,
	}
}

// NewQueryLog builds the backend selected by cfg.Backend: slog (default),
// parquet, postgres or mysql.
func NewQueryLog(ctx context.Context, cfg config.QueryLogConfig, logger *slog.Logger) (QueryLog, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "slog":
		return NewSlogQueryLog(logger), nil
	case "parquet":
		return NewParquetQueryLog(cfg.Path, 0)
	case DialectPostgres, DialectMySQL:
		return OpenSQLQueryLog(ctx, strings.ToLower(cfg.Backend), cfg.DSN, cfg.Table)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// SlogQueryLog writes missing queries to a logger at warn level.
type SlogQueryLog struct {
	logger *slog.Logger
}

// NewSlogQueryLog creates a SlogQueryLog. A nil logger selects slog.Default().
func NewSlogQueryLog(logger *slog.Logger) *SlogQueryLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogQueryLog{logger: logger}
}

// Record implements MissingQueryLog.
func (l *SlogQueryLog) Record(ctx context.Context, query string, terms []string) error {
	l.logger.WarnContext(ctx, "missing query", "query", query, "terms", terms)
	return nil
}

// Close implements QueryLog.
func (l *SlogQueryLog) Close() error { return nil }

// ParquetQueryLog buffers missing queries and writes them to Parquet files.
type ParquetQueryLog struct {
	outputDir string
	batchSize int

	mu     sync.Mutex
	buffer []MissingQuery
	closed bool
}

// NewParquetQueryLog creates a ParquetQueryLog writing into outputDir. A file
// is written every batchSize records and on Close; batchSize <= 0 selects 50.
func NewParquetQueryLog(outputDir string, batchSize int) (*ParquetQueryLog, error) {
	if outputDir == "" {
		return nil, errors.New("parquet query log needs a path")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create query log directory: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ParquetQueryLog{
		outputDir: outputDir,
		batchSize: batchSize,
		buffer:    make([]MissingQuery, 0, batchSize),
	}, nil
}

// Record implements MissingQueryLog.
func (l *ParquetQueryLog) Record(ctx context.Context, query string, terms []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrQueryLogClosed
	}
	l.buffer = append(l.buffer, newMissingQuery(ctx, query, terms))
	if len(l.buffer) >= l.batchSize {
		return l.flushLocked()
	}
	return nil
}

// Flush writes buffered records to a new file.
func (l *ParquetQueryLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}

func (l *ParquetQueryLog) flushLocked() error {
	if len(l.buffer) == 0 {
		return nil
	}
	now := time.Now()
	filename := fmt.Sprintf("missing_queries_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	if err := parquet.WriteFile(filepath.Join(l.outputDir, filename), l.buffer); err != nil {
		return fmt.Errorf("failed to write missing query file: %w", err)
	}
	l.buffer = l.buffer[:0]
	return nil
}

// Close flushes the buffer; later records are rejected.
func (l *ParquetQueryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.flushLocked()
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLQueryLog inserts missing queries into a SQL table.
type SQLQueryLog struct {
	db        *sql.DB
	dialect   string
	tableName string
	ownsDB    bool
}

// OpenSQLQueryLog opens dsn with the driver for dialect and prepares the table.
func OpenSQLQueryLog(ctx context.Context, dialect, dsn, tableName string) (*SQLQueryLog, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s query log needs a dsn", dialect)
	}
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect, err)
	}
	l, err := NewSQLQueryLog(ctx, db, dialect, tableName)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	l.ownsDB = true
	return l, nil
}

// NewSQLQueryLog uses an existing connection and creates the table if needed.
func NewSQLQueryLog(ctx context.Context, db *sql.DB, dialect, tableName string) (*SQLQueryLog, error) {
	if tableName == "" {
		tableName = "missing_queries"
	}
	if !tableNamePattern.MatchString(tableName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, tableName)
	}
	if dialect != DialectPostgres && dialect != DialectMySQL {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, dialect)
	}
	l := &SQLQueryLog{db: db, dialect: dialect, tableName: tableName}
	if err := l.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure query log table: %w", err)
	}
	return l, nil
}

func (l *SQLQueryLog) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(36) PRIMARY KEY,
			timestamp TIMESTAMP,
			query TEXT,
			terms %s,
			request_id VARCHAR(64),
			user_id VARCHAR(255)
		)
	`, l.tableName, jsonColumnType(l.dialect))
	_, err := l.db.ExecContext(ctx, query)
	return err
}

// Record implements MissingQueryLog.
func (l *SQLQueryLog) Record(ctx context.Context, query string, terms []string) error {
	entry := newMissingQuery(ctx, query, terms)
	termsJSON, err := json.Marshal(entry.Terms)
	if err != nil {
		return fmt.Errorf("failed to encode terms: %w", err)
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (id, timestamp, query, terms, request_id, user_id) VALUES (%s)`,
		l.tableName, placeholders(l.dialect, 6))
	if _, err := l.db.ExecContext(ctx, stmt,
		entry.ID, entry.Timestamp, entry.Query, string(termsJSON), entry.RequestID, entry.UserID,
	); err != nil {
		return fmt.Errorf("failed to insert missing query: %w", err)
	}
	return nil
}

// Close closes the connection when it was opened by OpenSQLQueryLog.
func (l *SQLQueryLog) Close() error {
	if l.ownsDB {
		return l.db.Close()
	}
	return nil
}
