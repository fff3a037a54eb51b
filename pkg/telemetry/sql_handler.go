package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// sqlSink is the table shared by an SQLHandler and the handlers derived from
// it with WithAttrs or WithGroup.
type sqlSink struct {
	db     *sql.DB
	insert string
}

// SQLHandler forwards every record to the next handler and also stores
// error-level records, with the request fields found in the context, in a
// postgres or mysql table.
type SQLHandler struct {
	next  slog.Handler
	sink  *sqlSink
	attrs []slog.Attr
}

// NewSQLHandler creates the table if needed and returns the handler. The
// caller keeps ownership of db.
func NewSQLHandler(ctx context.Context, next slog.Handler, db *sql.DB, dialect, tableName string) (*SQLHandler, error) {
	if tableName == "" {
		tableName = "telemetry_logs"
	}
	if !tableNamePattern.MatchString(tableName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, tableName)
	}
	if dialect != DialectPostgres && dialect != DialectMySQL {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, dialect)
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) PRIMARY KEY,
		timestamp TIMESTAMP,
		level VARCHAR(10),
		message TEXT,
		request_id VARCHAR(64),
		user_id VARCHAR(255),
		session_id VARCHAR(255),
		request_source VARCHAR(255),
		source_file VARCHAR(255),
		line_number INT,
		attributes %s
	)`, tableName, jsonColumnType(dialect))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return nil, fmt.Errorf("failed to ensure telemetry table: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (id, timestamp, level, message, request_id, user_id, session_id, request_source, source_file, line_number, attributes) VALUES (%s)`,
		tableName, placeholders(dialect, 11))
	return &SQLHandler{next: next, sink: &sqlSink{db: db, insert: insert}}, nil
}

// Enabled implements slog.Handler
func (h *SQLHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler. Database failures are reported on stderr
// and never fail the logging call.
func (h *SQLHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelError {
		return nil
	}

	fields := fieldsFromContext(ctx)
	file, line := recordSource(r)
	_, err := h.sink.db.ExecContext(context.WithoutCancel(ctx), h.sink.insert,
		uuid.NewString(),
		r.Time.UTC(),
		r.Level.String(),
		r.Message,
		fields.RequestID,
		fields.UserID,
		fields.SessionID,
		fields.RequestSource,
		file,
		line,
		recordAttributes(r, h.attrs),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: failed to store log record: %v\n", err)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *SQLHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SQLHandler{
		next:  h.next.WithAttrs(attrs),
		sink:  h.sink,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler
func (h *SQLHandler) WithGroup(name string) slog.Handler {
	return &SQLHandler{next: h.next.WithGroup(name), sink: h.sink, attrs: h.attrs}
}
