package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/types"
)

// Validation errors
var (
	ErrEmptyQuery     = errors.New("query cannot be empty")
	ErrQueryTooLong   = errors.New("query exceeds maximum length (4096)")
	ErrInvalidTopK    = errors.New("top_k must be between 0 and 100")
	ErrInvalidScore   = errors.New("threshold must be between 0 and 1")
	ErrTooManyHints   = errors.New("hint lists are limited to 50 entries")
	ErrEmptySearchKey = errors.New("text cannot be empty")
)

// Maximum field sizes accepted by the API.
const (
	MaxQueryLength = 4096
	MaxTopK        = 100
	MaxHintEntries = 50
	MaxNameLength  = 256
)

// SearchRequest is the body of POST /api/v1/schema/search.
type SearchRequest struct {
	Query           string   `json:"query" binding:"required"`
	Database        string   `json:"database,omitempty"`
	Domain          string   `json:"domain,omitempty"`
	Intent          string   `json:"intent,omitempty"`
	Entities        []string `json:"entities,omitempty"`
	BusinessTerms   []string `json:"business_terms,omitempty"`
	ColumnHints     []string `json:"column_hints,omitempty"`
	TopK            int      `json:"top_k,omitempty"`
	Threshold       float64  `json:"threshold,omitempty"`
	IncludePatterns bool     `json:"include_patterns,omitempty"`
	IncludeContext  *bool    `json:"include_context,omitempty"`
	SkipVector      bool     `json:"skip_vector,omitempty"`
}

// Validate performs validation on SearchRequest
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if len(r.Query) > MaxQueryLength {
		return ErrQueryTooLong
	}
	if r.TopK < 0 || r.TopK > MaxTopK {
		return ErrInvalidTopK
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return ErrInvalidScore
	}
	for _, list := range [][]string{r.Entities, r.BusinessTerms, r.ColumnHints} {
		if len(list) > MaxHintEntries {
			return ErrTooManyHints
		}
	}
	if len(r.Database) > MaxNameLength || len(r.Domain) > MaxNameLength {
		return fmt.Errorf("database and domain are limited to %d characters", MaxNameLength)
	}
	return nil
}

// Hints converts the request into retrieval hints.
func (r *SearchRequest) Hints() types.Hints {
	return types.Hints{
		Database:        strings.TrimSpace(r.Database),
		Domain:          strings.TrimSpace(r.Domain),
		Intent:          types.ParseIntent(r.Intent),
		Entities:        r.Entities,
		BusinessTerms:   r.BusinessTerms,
		ColumnHints:     r.ColumnHints,
		TopK:            r.TopK,
		Threshold:       r.Threshold,
		IncludePatterns: r.IncludePatterns,
		IncludeContext:  r.IncludeContext,
		SkipVector:      r.SkipVector,
	}
}

// SearchByLabelRequest is the body of POST /api/v1/schema/search-by-label.
type SearchByLabelRequest struct {
	Label     string  `json:"label" binding:"required"`
	Text      string  `json:"text" binding:"required"`
	TopK      int     `json:"top_k,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Database  string  `json:"database,omitempty"`
}

// Validate performs validation on SearchByLabelRequest and returns the
// parsed label.
func (r *SearchByLabelRequest) Validate() (types.Label, error) {
	label, err := types.ParseLabel(r.Label)
	if err != nil {
		return "", err
	}
	if !label.Searchable() {
		return "", fmt.Errorf("%w: %q is not searchable", types.ErrInvalidLabel, r.Label)
	}
	if strings.TrimSpace(r.Text) == "" {
		return "", ErrEmptySearchKey
	}
	if len(r.Text) > MaxQueryLength {
		return "", ErrQueryTooLong
	}
	if r.TopK < 0 || r.TopK > MaxTopK {
		return "", ErrInvalidTopK
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return "", ErrInvalidScore
	}
	return label, nil
}

// LabelSearchResponse is the response of POST /api/v1/schema/search-by-label.
type LabelSearchResponse struct {
	Label   types.Label        `json:"label"`
	Results []types.ScoredItem `json:"results"`
	Total   int                `json:"total"`
}
