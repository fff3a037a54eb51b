package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// LogRecord represents a single log entry for Parquet storage
type LogRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	RequestID     string    `parquet:"request_id"`
	UserID        string    `parquet:"user_id"`
	SessionID     string    `parquet:"session_id"`
	RequestSource string    `parquet:"request_source"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON string
}

// parquetSink is the buffer shared by a ParquetHandler and its derived
// handlers.
type parquetSink struct {
	outputDir string
	batchSize int

	mu     sync.Mutex
	buffer []LogRecord
}

func (s *parquetSink) add(rec LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, rec)
	if len(s.buffer) >= s.batchSize {
		return s.flushLocked()
	}
	return nil
}

func (s *parquetSink) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes the buffer to a new Parquet file. Caller must hold the lock.
func (s *parquetSink) flushLocked() error {
	if len(s.buffer) == 0 {
		return nil
	}
	now := time.Now()
	filename := fmt.Sprintf("error_logs_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	if err := parquet.WriteFile(filepath.Join(s.outputDir, filename), s.buffer); err != nil {
		return fmt.Errorf("failed to write telemetry parquet file: %w", err)
	}
	s.buffer = s.buffer[:0]
	return nil
}

// ParquetHandler is a slog.Handler that forwards every record to the next
// handler and additionally buffers error-level records into Parquet files.
type ParquetHandler struct {
	next  slog.Handler
	sink  *parquetSink
	attrs []slog.Attr
}

// NewParquetHandler creates a new ParquetHandler writing into outputDir.
// Records are flushed every batchSize errors and on Close; batchSize <= 0
// selects 100.
func NewParquetHandler(next slog.Handler, outputDir string, batchSize int) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ParquetHandler{
		next: next,
		sink: &parquetSink{
			outputDir: outputDir,
			batchSize: batchSize,
			buffer:    make([]LogRecord, 0, batchSize),
		},
	}, nil
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelError {
		return nil
	}

	fields := fieldsFromContext(ctx)
	file, line := recordSource(r)
	err := h.sink.add(LogRecord{
		ID:            uuid.New().String(),
		Timestamp:     r.Time.UTC(),
		Level:         r.Level.String(),
		Message:       r.Message,
		RequestID:     fields.RequestID,
		UserID:        fields.UserID,
		SessionID:     fields.SessionID,
		RequestSource: fields.RequestSource,
		SourceFile:    file,
		LineNumber:    line,
		Attributes:    recordAttributes(r, h.attrs),
	})
	if err != nil {
		// never break the logging chain on a telemetry failure
		fmt.Fprintf(os.Stderr, "telemetry: %v\n", err)
	}
	return nil
}

// WithAttrs implements slog.Handler. Derived handlers share the buffer.
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithAttrs(attrs),
		sink:  h.sink,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithGroup(name),
		sink:  h.sink,
		attrs: h.attrs,
	}
}

// Flush writes buffered records to disk.
func (h *ParquetHandler) Flush() error {
	return h.sink.flush()
}

// Close flushes the buffer.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}
