package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cloo-solutions/postcraft/internal/api"
	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type IngestJobStore interface {
	Create(ctx context.Context, job *domain.IngestJob) error
	GetByID(ctx context.Context, id string) (*domain.IngestJob, error)
}

type IngestHandler struct {
	jobs IngestJobStore
}

func NewIngestHandler(jobs IngestJobStore) *IngestHandler {
	return &IngestHandler{jobs: jobs}
}

type CreateIngestRequest struct {
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata"`
}

type IngestJobResponse struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	Metadata    map[string]string `json:"metadata"`
	Status      string            `json:"status"`
	Retries     int32             `json:"retries"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   string            `json:"created_at"`
	ProcessedAt string            `json:"processed_at,omitempty"`
}

func ingestJobToResponse(job *domain.IngestJob) *IngestJobResponse {
	resp := &IngestJobResponse{
		ID:        job.ID,
		URL:       job.URL,
		Metadata:  job.Metadata,
		Status:    string(job.Status),
		Retries:   job.Retries,
		Error:     job.Error,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	}
	if job.ProcessedAt != nil {
		resp.ProcessedAt = job.ProcessedAt.Format(time.RFC3339)
	}
	return resp
}

// Create enqueues a URL for asynchronous indexing. The worker picks the job
// up on its next poll.
func (h *IngestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := domain.ValidateURL(req.URL); err != nil {
		api.HandleError(w, err)
		return
	}

	job := &domain.IngestJob{
		ID:        uuid.NewString(),
		URL:       req.URL,
		Metadata:  req.Metadata,
		Status:    domain.IngestJobStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := domain.ValidateIngestJob(job); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.jobs.Create(r.Context(), job); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, ingestJobToResponse(job))
}

// Get returns the current status of an ingestion job.
func (h *IngestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrIngestJobNotFound) {
			api.Error(w, http.StatusNotFound, "ingest job not found")
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ingestJobToResponse(job))
}
