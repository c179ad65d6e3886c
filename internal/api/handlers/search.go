package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/postcraft/internal/api"
	"github.com/cloo-solutions/postcraft/internal/vector"
)

type ContentSearcher interface {
	Search(ctx context.Context, query, projectID string, k int) ([]*vector.Record, error)
}

type SearchHandler struct {
	searcher ContentSearcher
}

func NewSearchHandler(searcher ContentSearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

type SearchRequest struct {
	Query     string `json:"query"`
	ProjectID string `json:"project_id"`
	TopK      int    `json:"top_k"`
}

type SearchResult struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs a semantic query against the content index.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	records, err := h.searcher.Search(r.Context(), req.Query, req.ProjectID, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]SearchResult, len(records))
	for i, rec := range records {
		results[i] = SearchResult{
			ID:       rec.ID,
			Score:    rec.Score,
			Metadata: rec.Metadata,
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: results})
}
