package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/postcraft/internal/api"
	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/service"
)

type PostCreator interface {
	CreatePostFromPage(ctx context.Context, trigger domain.PageTrigger) (*domain.InstagramPost, error)
}

type CalendarCreator interface {
	CreateCalendar(ctx context.Context, trigger domain.CalendarTrigger) (*service.CalendarPosts, error)
}

type BrandVoiceAnalyzer interface {
	AnalyzeWebsite(ctx context.Context, trigger domain.BrandVoiceTrigger) (*domain.BrandVoiceProfile, error)
}

// WorkflowHandler exposes the synchronous generation workflows over HTTP.
type WorkflowHandler struct {
	posts      PostCreator
	calendars  CalendarCreator
	brandVoice BrandVoiceAnalyzer
}

func NewWorkflowHandler(posts PostCreator, calendars CalendarCreator, brandVoice BrandVoiceAnalyzer) *WorkflowHandler {
	return &WorkflowHandler{
		posts:      posts,
		calendars:  calendars,
		brandVoice: brandVoice,
	}
}

type CreatePagePostRequest struct {
	URL string `json:"url"`
}

// CreatePagePost generates an Instagram post from a single web page.
func (h *WorkflowHandler) CreatePagePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePagePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.posts.CreatePostFromPage(r.Context(), domain.PageTrigger{URL: req.URL})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, post)
}

type CreateCalendarRequest struct {
	BrandVoice  string `json:"brandVoice"`
	Audience    string `json:"audience"`
	Description string `json:"description"`
	DateRange   string `json:"dateRange"`
	PostsPerDay int    `json:"postsPerDay"`
	ProjectID   string `json:"projectId"`
}

// CreateCalendar plans a content calendar and generates a post per topic.
// Topics whose generation fails or times out are dropped from the result.
func (h *WorkflowHandler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	var req CreateCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trigger := domain.CalendarTrigger{
		BrandVoice:  req.BrandVoice,
		Audience:    req.Audience,
		Description: req.Description,
		DateRange:   req.DateRange,
		PostsPerDay: req.PostsPerDay,
		ProjectID:   req.ProjectID,
	}

	result, err := h.calendars.CreateCalendar(r.Context(), trigger)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

type AnalyzeWebsiteRequest struct {
	URL string `json:"url"`
}

// AnalyzeWebsite derives a brand voice profile from a website's landing page.
func (h *WorkflowHandler) AnalyzeWebsite(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.brandVoice.AnalyzeWebsite(r.Context(), domain.BrandVoiceTrigger{URL: req.URL})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, profile)
}
