package hints

import (
	"context"
	"strings"
	"unicode"

	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/soundprediction/schemagraph/pkg/utils"
)

const maxKeywordTerms = 6

var stopWords = toSet(
	"a", "an", "and", "are", "as", "at", "be", "by", "can", "do", "does", "for",
	"from", "get", "give", "has", "have", "how", "i", "in", "is", "it", "list",
	"me", "many", "much", "of", "on", "or", "over", "per", "show", "than", "that",
	"the", "their", "there", "this", "to", "under", "was", "we", "what", "when",
	"where", "which", "who", "with", "all", "each", "every", "find", "between",
	"above", "below", "more", "less", "last", "top", "total", "number",
	"table", "tables", "column", "columns", "data",
)

var relationshipWords = toSet(
	"join", "joins", "joined", "relate", "related", "relationship",
	"relationships", "relation", "connect", "connected", "link", "linked",
	"foreign", "references", "between",
)

var lookupPrefixes = []string{
	"what is", "what are", "what does", "define", "definition of", "meaning of",
	"describe", "explain",
}

// columnMarkers precede a word that usually names a column: "grouped by
// region", "accounts with balance".
var columnMarkers = toSet("by", "with", "where", "per")

// KeywordAnalyzer infers hints with word-level heuristics: stop-word removal,
// naive singularization and keyword-based intent detection.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer creates a KeywordAnalyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

// Analyze extracts entities, column hints, a database qualifier and the intent.
func (a *KeywordAnalyzer) Analyze(ctx context.Context, query string) (types.Hints, error) {
	var h types.Hints
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" {
		return h, nil
	}
	h.Intent = classifyIntent(lower)

	words := tokenize(lower)
	var entities, columns []string
	for i, w := range words {
		if db, _, ok := strings.Cut(w, "."); ok && db != "" && h.Database == "" {
			h.Database = db
			entities = append(entities, w)
			continue
		}
		if _, stop := stopWords[w]; stop || isNumeric(w) || len(w) < 3 {
			continue
		}
		if _, rel := relationshipWords[w]; rel {
			continue
		}
		term := singular(w)
		if strings.Contains(w, "_") || (i > 0 && isColumnMarker(words[i-1])) {
			columns = append(columns, term)
			continue
		}
		entities = append(entities, term)
	}

	if ents := utils.DedupeFold(entities); len(ents) > 0 {
		h.Entities = utils.Truncate(ents, maxKeywordTerms)
	}
	if cols := utils.DedupeFold(columns); len(cols) > 0 {
		h.ColumnHints = utils.Truncate(cols, maxKeywordTerms)
	}
	return h, nil
}

func classifyIntent(lower string) types.Intent {
	for _, w := range tokenize(lower) {
		if _, ok := relationshipWords[w]; ok {
			return types.IntentRelationshipDiscovery
		}
	}
	for _, p := range lookupPrefixes {
		if strings.HasPrefix(lower, p) {
			return types.IntentKnowledgeLookup
		}
	}
	return types.IntentUnspecified
}

// tokenize splits on anything but letters, digits, '_' and '.', trimming
// sentence punctuation off the ends of words.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "."); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func singular(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"), strings.HasSuffix(w, "xes"),
		strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "s") && len(w) > 3:
		return w[:len(w)-1]
	}
	return w
}

func isColumnMarker(w string) bool {
	_, ok := columnMarkers[w]
	return ok
}

func isNumeric(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
