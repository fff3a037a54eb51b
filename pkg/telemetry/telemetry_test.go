package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/schemagraph/pkg/config"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parquetFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	return files
}

func TestParquetHandlerBuffersErrors(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	h, err := NewParquetHandler(slog.NewTextHandler(&out, nil), dir, 2)
	require.NoError(t, err)

	logger := slog.New(h).With("component", "search")
	ctx := context.WithValue(context.Background(), types.ContextKeyRequestID, "req-1")

	logger.InfoContext(ctx, "not persisted")
	logger.ErrorContext(ctx, "first failure", "error", errors.New("boom"))
	assert.Empty(t, parquetFiles(t, dir), "below batch size")

	logger.ErrorContext(ctx, "second failure")
	files := parquetFiles(t, dir)
	require.Len(t, files, 1)

	rows, err := parquet.ReadFile[LogRecord](files[0])
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "first failure", rows[0].Message)
	assert.Equal(t, "req-1", rows[0].RequestID)
	assert.Contains(t, rows[0].Attributes, `"component":"search"`)
	assert.Contains(t, rows[0].Attributes, `"error":"boom"`)
	assert.Contains(t, out.String(), "not persisted")
}

func TestParquetHandlerCloseFlushes(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), dir, 0)
	require.NoError(t, err)

	slog.New(h).Error("only one")
	assert.Empty(t, parquetFiles(t, dir))
	require.NoError(t, h.Close())
	assert.Len(t, parquetFiles(t, dir), 1)
}

func TestSlogQueryLog(t *testing.T) {
	var out bytes.Buffer
	l := NewSlogQueryLog(slog.New(slog.NewTextHandler(&out, nil)))
	require.NoError(t, l.Record(context.Background(), "revenue by region", []string{"revenue"}))
	assert.Contains(t, out.String(), "missing query")
	assert.Contains(t, out.String(), "revenue by region")
	assert.NoError(t, l.Close())
}

func TestParquetQueryLog(t *testing.T) {
	dir := t.TempDir()
	l, err := NewParquetQueryLog(dir, 10)
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), types.ContextKeyUserID, "analyst")
	require.NoError(t, l.Record(ctx, "churned customers", []string{"churned customers", "attrition"}))
	require.NoError(t, l.Record(ctx, "weekly active users", nil))
	require.NoError(t, l.Close())

	files := parquetFiles(t, dir)
	require.Len(t, files, 1)
	rows, err := parquet.ReadFile[MissingQuery](files[0])
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "churned customers", rows[0].Query)
	assert.Equal(t, []string{"churned customers", "attrition"}, rows[0].Terms)
	assert.Equal(t, "analyst", rows[0].UserID)
	assert.NotEmpty(t, rows[0].ID)

	assert.ErrorIs(t, l.Record(ctx, "late", nil), ErrQueryLogClosed)
}

func TestNewQueryLog(t *testing.T) {
	ctx := context.Background()

	l, err := NewQueryLog(ctx, config.QueryLogConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SlogQueryLog{}, l)

	dir := filepath.Join(t.TempDir(), "missing")
	l, err = NewQueryLog(ctx, config.QueryLogConfig{Backend: "parquet", Path: dir}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ParquetQueryLog{}, l)
	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr)

	_, err = NewQueryLog(ctx, config.QueryLogConfig{Backend: "kafka"}, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = NewQueryLog(ctx, config.QueryLogConfig{Backend: "postgres"}, nil)
	assert.ErrorContains(t, err, "needs a dsn")
}

func TestSQLQueryLogPostgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS missing_queries`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO missing_queries .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "orders last week", `["orders"]`, "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	l, err := NewSQLQueryLog(context.Background(), db, DialectPostgres, "")
	require.NoError(t, err)
	require.NoError(t, l.Record(context.Background(), "orders last week", []string{"orders"}))
	require.NoError(t, l.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLQueryLogMySQLInsertError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS gaps`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO gaps .* VALUES \(\?, \?, \?, \?, \?, \?\)`).WillReturnError(errors.New("disk full"))

	l, err := NewSQLQueryLog(context.Background(), db, DialectMySQL, "gaps")
	require.NoError(t, err)
	err = l.Record(context.Background(), "q", nil)
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLQueryLogRejectsTableName(t *testing.T) {
	_, err := NewSQLQueryLog(context.Background(), nil, DialectMySQL, "gaps; DROP TABLE users")
	assert.ErrorIs(t, err, ErrInvalidTableName)
}

func TestSQLHandler(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS telemetry_logs`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO telemetry_logs`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "ERROR", "store down",
			"", "", "", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h, err := NewSQLHandler(context.Background(), slog.NewTextHandler(&bytes.Buffer{}, nil), db, DialectMySQL, "")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Warn("not stored")
	logger.Error("store down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLHandlerValidatesTarget(t *testing.T) {
	next := slog.NewTextHandler(&bytes.Buffer{}, nil)
	_, err := NewSQLHandler(context.Background(), next, nil, DialectMySQL, "logs; DROP TABLE users")
	assert.ErrorIs(t, err, ErrInvalidTableName)

	_, err = NewSQLHandler(context.Background(), next, nil, "sqlite", "logs")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestSQLHandlerKeepsAttrsAcrossDerivedHandlers(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS audit`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO audit .* VALUES \(\$1, .*\$11\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "ERROR", "vector level failed",
			"", "", "", "", sqlmock.AnyArg(), sqlmock.AnyArg(), `{"component":"search","label":"Table"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h, err := NewSQLHandler(context.Background(), slog.NewTextHandler(&bytes.Buffer{}, nil), db, DialectPostgres, "audit")
	require.NoError(t, err)

	slog.New(h).With("component", "search").Error("vector level failed", "label", "Table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", placeholders(DialectPostgres, 3))
	assert.Equal(t, "?, ?", placeholders(DialectMySQL, 2))
	assert.Equal(t, "JSONB", jsonColumnType(DialectPostgres))
	assert.Equal(t, "JSON", jsonColumnType(DialectMySQL))
}
