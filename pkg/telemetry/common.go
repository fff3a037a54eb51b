package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/types"
)

// requestFields are the request-scoped values copied from a context into
// persisted records.
type requestFields struct {
	RequestID     string
	UserID        string
	SessionID     string
	RequestSource string
}

func fieldsFromContext(ctx context.Context) requestFields {
	var f requestFields
	if ctx == nil {
		return f
	}
	if v, ok := ctx.Value(types.ContextKeyRequestID).(string); ok {
		f.RequestID = v
	}
	if v, ok := ctx.Value(types.ContextKeyUserID).(string); ok {
		f.UserID = v
	}
	if v, ok := ctx.Value(types.ContextKeySessionID).(string); ok {
		f.SessionID = v
	}
	if v, ok := ctx.Value(types.ContextKeyRequestSource).(string); ok {
		f.RequestSource = v
	}
	return f
}

// recordAttributes serializes a log record's attributes as a JSON object.
func recordAttributes(r slog.Record, preset []slog.Attr) string {
	attrs := make(map[string]any, r.NumAttrs()+len(preset))
	for _, a := range preset {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		v := a.Value.Any()
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		attrs[a.Key] = v
		return true
	})
	b, err := json.Marshal(attrs)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// recordSource returns the file and line that emitted r.
func recordSource(r slog.Record) (string, int) {
	if r.PC == 0 {
		return "", 0
	}
	fs := runtime.CallersFrames([]uintptr{r.PC})
	f, _ := fs.Next()
	return f.File, f.Line
}

// SQL dialects accepted by the SQL sinks.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// placeholders returns n bind placeholders for dialect.
func placeholders(dialect string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		if dialect == DialectPostgres {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// jsonColumnType is the column type used for JSON payloads.
func jsonColumnType(dialect string) string {
	if dialect == DialectPostgres {
		return "JSONB"
	}
	return "JSON"
}
