package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/schemagraph"
	"github.com/soundprediction/schemagraph/pkg/server/dto"
	"github.com/soundprediction/schemagraph/pkg/types"
)

// SearchHandler serves schema retrieval requests
type SearchHandler struct {
	retriever schemagraph.Retriever
	logger    *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(retriever schemagraph.Retriever, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{retriever: retriever, logger: logger}
}

// Search handles POST /api/v1/schema/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if h.retriever == nil {
		respondError(c, http.StatusServiceUnavailable, "not_ready", "retriever not initialized")
		return
	}

	result, err := h.retriever.Retrieve(c.Request.Context(), req.Query, req.Hints())
	if err != nil {
		if errors.Is(err, schemagraph.ErrEmptyQuery) || errors.Is(err, schemagraph.ErrInvalidTopK) {
			respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "schema search failed", "query", req.Query, "error", err)
		respondError(c, http.StatusInternalServerError, "search_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchByLabel handles POST /api/v1/schema/search-by-label
func (h *SearchHandler) SearchByLabel(c *gin.Context) {
	var req dto.SearchByLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	label, err := req.Validate()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if h.retriever == nil {
		respondError(c, http.StatusServiceUnavailable, "not_ready", "retriever not initialized")
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = 5
	}
	threshold := req.Threshold
	if threshold == 0 {
		threshold = 0.5
	}

	items, err := h.retriever.SearchByLabelText(c.Request.Context(), label, req.Text, topK, threshold, req.Database)
	switch {
	case errors.Is(err, schemagraph.ErrNoEmbedder):
		respondError(c, http.StatusServiceUnavailable, "embedder_unavailable", err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(c.Request.Context(), "label search failed", "label", label, "error", err)
		respondError(c, http.StatusInternalServerError, "search_failed", err.Error())
		return
	}
	if items == nil {
		items = []types.ScoredItem{}
	}
	c.JSON(http.StatusOK, dto.LabelSearchResponse{Label: label, Results: items, Total: len(items)})
}

// respondError aborts the request with an ErrorResponse body.
func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:     code,
		Message:   message,
		Code:      status,
		RequestID: c.GetString(RequestIDKey),
	})
}

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"
