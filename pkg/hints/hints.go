// Package hints produces retrieval hints from raw query text. Retrieval never
// depends on it: callers that already know their entities, domain or intent
// pass them directly, and an analyzer only fills the gaps.
package hints

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/config"
	"github.com/soundprediction/schemagraph/pkg/gliner"
	"github.com/soundprediction/schemagraph/pkg/types"
)

// Analyzer infers hints from a query.
type Analyzer interface {
	Analyze(ctx context.Context, query string) (types.Hints, error)
}

// Nop is an Analyzer that infers nothing.
type Nop struct{}

// Analyze returns empty hints.
func (Nop) Analyze(context.Context, string) (types.Hints, error) {
	return types.Hints{}, nil
}

// New builds the analyzer selected by cfg. The returned analyzer may hold
// native resources; close it through io.Closer when it implements one.
func New(cfg config.HintsConfig, logger *slog.Logger) (Analyzer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Analyzer)) {
	case "", "none":
		return Nop{}, nil
	case "keyword":
		return NewKeywordAnalyzer(), nil
	case "gliner":
		client, err := gliner.NewClient(cfg.Model)
		if err != nil {
			return nil, err
		}
		a := NewGlinerAnalyzer(client, cfg.Labels)
		a.SetLogger(logger)
		return a, nil
	default:
		return nil, fmt.Errorf("unknown hints analyzer %q", cfg.Analyzer)
	}
}

// Merge fills the unset text and list fields of explicit from inferred.
// Explicit values always win; numeric and boolean fields are never inferred.
func Merge(explicit, inferred types.Hints) types.Hints {
	out := explicit
	if out.Database == "" {
		out.Database = inferred.Database
	}
	if out.Domain == "" {
		out.Domain = inferred.Domain
	}
	if out.Intent == types.IntentUnspecified {
		out.Intent = inferred.Intent
	}
	if len(out.Entities) == 0 {
		out.Entities = inferred.Entities
	}
	if len(out.BusinessTerms) == 0 {
		out.BusinessTerms = inferred.BusinessTerms
	}
	if len(out.ColumnHints) == 0 {
		out.ColumnHints = inferred.ColumnHints
	}
	return out
}

// Enrich runs a on query and merges the result into explicit. An analyzer
// failure is logged and the explicit hints are returned unchanged.
func Enrich(ctx context.Context, a Analyzer, query string, explicit types.Hints, logger *slog.Logger) types.Hints {
	if a == nil {
		return explicit
	}
	inferred, err := a.Analyze(ctx, query)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("hint analysis failed", "query", query, "error", err)
		return explicit
	}
	return Merge(explicit, inferred)
}
