package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/soundprediction/schemagraph"
	"github.com/soundprediction/schemagraph/pkg/search"
	"github.com/soundprediction/schemagraph/pkg/server/dto"
	"github.com/soundprediction/schemagraph/pkg/types"
)

// ContextProvider is implemented by retrievers that can hydrate a single
// table. *schemagraph.Client satisfies it.
type ContextProvider interface {
	TableContext(ctx context.Context, table string) (*types.TableContext, error)
}

var _ ContextProvider = (*schemagraph.Client)(nil)

// SearchSchemaRequest is the search_schema input. Format "context" returns
// the prompt-ready text block instead of the structured result.
type SearchSchemaRequest struct {
	dto.SearchRequest
	Format      string `json:"format,omitempty" jsonschema:"enum=json,enum=context"`
	EnsureASCII bool   `json:"ensure_ascii,omitempty"`
}

// TableContextRequest names one table.
type TableContextRequest struct {
	Table string `json:"table"`
}

// ToolResponse is a generic response wrapper
type ToolResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(format string, args ...any) *ToolResponse {
	return &ToolResponse{Success: false, Error: fmt.Sprintf(format, args...)}
}

// SearchSchemaTool runs the full retrieval pipeline.
func (s *Server) SearchSchemaTool(ctx *ai.ToolContext, input *SearchSchemaRequest) (*ToolResponse, error) {
	if input == nil {
		return failure("query is required"), nil
	}
	if err := input.Validate(); err != nil {
		return failure("%v", err), nil
	}

	result, err := s.retriever.Retrieve(ctx, input.Query, input.Hints())
	if err != nil {
		s.logger.Error("schema search failed", "query", input.Query, "error", err)
		return failure("failed to search schema: %v", err), nil
	}

	message := fmt.Sprintf("%d results", len(result.RankedResults))
	if result.SearchMetadata.FallbackTriggered && len(result.SuggestedDomains) > 0 {
		message = fmt.Sprintf("no direct match; %d suggested domains", len(result.SuggestedDomains))
	}

	if strings.EqualFold(input.Format, "context") {
		text, err := search.ResultToContextString(result, input.EnsureASCII)
		if err != nil {
			return failure("failed to render context: %v", err), nil
		}
		return &ToolResponse{Success: true, Message: message, Data: text}, nil
	}
	return &ToolResponse{Success: true, Message: message, Data: result}, nil
}

// SearchByLabelTool embeds the text and searches one label.
func (s *Server) SearchByLabelTool(ctx *ai.ToolContext, input *dto.SearchByLabelRequest) (*ToolResponse, error) {
	if input == nil {
		return failure("label and text are required"), nil
	}
	label, err := input.Validate()
	if err != nil {
		return failure("%v", err), nil
	}
	topK, threshold := input.TopK, input.Threshold
	if topK == 0 {
		topK = 5
	}
	if threshold == 0 {
		threshold = 0.5
	}

	items, err := s.retriever.SearchByLabelText(ctx, label, input.Text, topK, threshold, input.Database)
	if err != nil {
		if errors.Is(err, schemagraph.ErrNoEmbedder) {
			return failure("semantic search is unavailable: no embedder configured"), nil
		}
		return failure("failed to search %s: %v", label, err), nil
	}
	if items == nil {
		items = []types.ScoredItem{}
	}
	return &ToolResponse{
		Success: true,
		Message: fmt.Sprintf("%d %s results", len(items), label),
		Data:    dto.LabelSearchResponse{Label: label, Results: items, Total: len(items)},
	}, nil
}

// TableContextTool returns the hydrated context of one table.
func (s *Server) TableContextTool(ctx *ai.ToolContext, input *TableContextRequest) (*ToolResponse, error) {
	provider, ok := s.retriever.(ContextProvider)
	if !ok {
		return failure("table context is not supported"), nil
	}
	if input == nil || strings.TrimSpace(input.Table) == "" {
		return failure("table is required"), nil
	}

	tc, err := provider.TableContext(ctx, strings.TrimSpace(input.Table))
	if err != nil {
		return failure("failed to load table context: %v", err), nil
	}
	if tc == nil {
		return &ToolResponse{Success: false, Message: "table not found", Error: fmt.Sprintf("no table named %q", input.Table)}, nil
	}
	return &ToolResponse{Success: true, Message: "table context loaded", Data: tc}, nil
}
