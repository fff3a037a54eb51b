package driver

import (
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// TypeConversionError represents an error during type conversion from database types.
type TypeConversionError struct {
	Expected string
	Actual   string
	Field    string
}

func (e *TypeConversionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("type conversion error for field %q: expected %s, got %s", e.Field, e.Expected, e.Actual)
	}
	return fmt.Sprintf("type conversion error: expected %s, got %s", e.Expected, e.Actual)
}

// NewTypeConversionError creates a new TypeConversionError.
func NewTypeConversionError(expected, actual, field string) *TypeConversionError {
	return &TypeConversionError{
		Expected: expected,
		Actual:   actual,
		Field:    field,
	}
}

// AsRecordSlice safely converts an interface{} to []*db.Record.
func AsRecordSlice(v any) ([]*db.Record, bool) {
	if v == nil {
		return nil, false
	}
	records, ok := v.([]*db.Record)
	return records, ok
}

// AsDBNode safely converts an interface{} to dbtype.Node.
func AsDBNode(v any) (dbtype.Node, bool) {
	if v == nil {
		return dbtype.Node{}, false
	}
	node, ok := v.(dbtype.Node)
	return node, ok
}

// AsString safely converts an interface{} to string.
// Returns the string and true if successful, empty string and false otherwise.
func AsString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AsInt64 converts any integer or float value to int64.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	}
	return 0, false
}

// AsFloat64 converts any numeric value to float64. Ladybug and Neo4j disagree
// on integer widths, so callers should not assume a concrete type.
func AsFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

// AsBool safely converts an interface{} to bool.
func AsBool(v any) (bool, bool) {
	if v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// AsStringSlice converts []string or []any of strings to []string.
// Non-string and empty elements are skipped.
func AsStringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out, true
	}
	return nil, false
}

// AsFloat32Slice converts an embedding column into []float32.
func AsFloat32Slice(v any) ([]float32, bool) {
	switch s := v.(type) {
	case []float32:
		return s, true
	case []float64:
		out := make([]float32, len(s))
		for i, f := range s {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, 0, len(s))
		for _, item := range s {
			f, ok := AsFloat64(item)
			if !ok {
				return nil, false
			}
			out = append(out, float32(f))
		}
		return out, true
	}
	return nil, false
}

// AsMap safely converts an interface{} to map[string]any.
func AsMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// AsMapSlice converts a list column whose elements are maps.
func AsMapSlice(v any) ([]map[string]any, bool) {
	switch s := v.(type) {
	case []map[string]any:
		return s, true
	case []any:
		out := make([]map[string]any, 0, len(s))
		for _, item := range s {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	}
	return nil, false
}

// MustRecordSlice converts an interface{} to []*db.Record or returns an error.
func MustRecordSlice(v any, field string) ([]*db.Record, error) {
	records, ok := AsRecordSlice(v)
	if !ok {
		return nil, NewTypeConversionError("[]*db.Record", fmt.Sprintf("%T", v), field)
	}
	return records, nil
}

// MustString converts an interface{} to string or returns an error.
func MustString(v any, field string) (string, error) {
	s, ok := AsString(v)
	if !ok {
		return "", NewTypeConversionError("string", fmt.Sprintf("%T", v), field)
	}
	return s, nil
}

// String returns the trimmed string stored under key, or "".
func (r Record) String(key string) string {
	s, _ := AsString(r[key])
	return strings.TrimSpace(s)
}

// Float returns the numeric value stored under key.
func (r Record) Float(key string) (float64, bool) {
	return AsFloat64(r[key])
}

// Int returns the integer value stored under key, or 0.
func (r Record) Int(key string) int {
	i, _ := AsInt64(r[key])
	return int(i)
}

// Bool returns the boolean stored under key, or false.
func (r Record) Bool(key string) bool {
	b, _ := AsBool(r[key])
	return b
}

// Strings returns the string list stored under key.
func (r Record) Strings(key string) []string {
	s, _ := AsStringSlice(r[key])
	return s
}

// Embedding returns the vector stored under key.
func (r Record) Embedding(key string) []float32 {
	v, _ := AsFloat32Slice(r[key])
	return v
}

// Maps returns the list of maps stored under key.
func (r Record) Maps(key string) []map[string]any {
	m, _ := AsMapSlice(r[key])
	return m
}

// RequireString returns the string under key or a TypeConversionError.
func (r Record) RequireString(key string) (string, error) {
	return MustString(r[key], key)
}
