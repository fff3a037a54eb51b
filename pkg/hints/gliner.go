package hints

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/gliner"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

// DefaultGlinerLabels are the entity types asked of the model.
var DefaultGlinerLabels = []string{"table", "column", "business entity", "metric"}

// DefaultMinScore drops low-confidence spans.
const DefaultMinScore = 0.5

// EntityExtractor is the part of gliner.Client the analyzer uses.
type EntityExtractor interface {
	ExtractEntities(text string, labels []string) ([]gliner.Entity, error)
}

// GlinerAnalyzer infers hints with a zero-shot NER model. Spans labeled
// "column" become column hints, "metric" spans become business terms and the
// rest become entities. Intent comes from keyword heuristics.
type GlinerAnalyzer struct {
	extractor EntityExtractor
	labels    []string
	minScore  float32
	keywords  *KeywordAnalyzer
	logger    *slog.Logger
}

// NewGlinerAnalyzer creates a GlinerAnalyzer. Empty labels select
// DefaultGlinerLabels.
func NewGlinerAnalyzer(extractor EntityExtractor, labels []string) *GlinerAnalyzer {
	if len(labels) == 0 {
		labels = DefaultGlinerLabels
	}
	return &GlinerAnalyzer{
		extractor: extractor,
		labels:    labels,
		minScore:  DefaultMinScore,
		keywords:  NewKeywordAnalyzer(),
		logger:    slog.Default(),
	}
}

// SetLogger replaces the logger.
func (a *GlinerAnalyzer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

// SetMinScore changes the confidence cutoff.
func (a *GlinerAnalyzer) SetMinScore(score float32) {
	a.minScore = score
}

// Analyze runs the model over query.
func (a *GlinerAnalyzer) Analyze(ctx context.Context, query string) (types.Hints, error) {
	kw, err := a.keywords.Analyze(ctx, query)
	if err != nil {
		return types.Hints{}, err
	}
	h := types.Hints{Intent: kw.Intent, Database: kw.Database}
	if strings.TrimSpace(query) == "" {
		return h, nil
	}

	spans, err := a.extractor.ExtractEntities(query, a.labels)
	if err != nil {
		return types.Hints{}, err
	}

	var entities, columns, terms []string
	for _, s := range spans {
		if s.Score < a.minScore {
			continue
		}
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		switch strings.ToLower(s.Label) {
		case "column":
			columns = append(columns, text)
		case "metric":
			terms = append(terms, text)
		default:
			entities = append(entities, text)
		}
	}
	a.logger.Debug("gliner hints", "query", query, "spans", len(spans),
		"entities", len(entities), "columns", len(columns), "terms", len(terms))

	if v := utils.DedupeFold(entities); len(v) > 0 {
		h.Entities = v
	}
	if v := utils.DedupeFold(columns); len(v) > 0 {
		h.ColumnHints = v
	}
	if v := utils.DedupeFold(terms); len(v) > 0 {
		h.BusinessTerms = v
	}
	return h, nil
}

// Close releases the model when the extractor owns one.
func (a *GlinerAnalyzer) Close() error {
	if c, ok := a.extractor.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
