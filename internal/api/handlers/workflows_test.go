package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPostCreator struct {
	mock.Mock
}

func (m *MockPostCreator) CreatePostFromPage(ctx context.Context, trigger domain.PageTrigger) (*domain.InstagramPost, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstagramPost), args.Error(1)
}

type MockCalendarCreator struct {
	mock.Mock
}

func (m *MockCalendarCreator) CreateCalendar(ctx context.Context, trigger domain.CalendarTrigger) (*service.CalendarPosts, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CalendarPosts), args.Error(1)
}

type MockBrandVoiceAnalyzer struct {
	mock.Mock
}

func (m *MockBrandVoiceAnalyzer) AnalyzeWebsite(ctx context.Context, trigger domain.BrandVoiceTrigger) (*domain.BrandVoiceProfile, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BrandVoiceProfile), args.Error(1)
}

func newWorkflowHandlerWithMocks() (*WorkflowHandler, *MockPostCreator, *MockCalendarCreator, *MockBrandVoiceAnalyzer) {
	posts := new(MockPostCreator)
	calendars := new(MockCalendarCreator)
	brandVoice := new(MockBrandVoiceAnalyzer)
	return NewWorkflowHandler(posts, calendars, brandVoice), posts, calendars, brandVoice
}

func TestWorkflowHandler_CreatePagePost_Success(t *testing.T) {
	handler, posts, _, _ := newWorkflowHandlerWithMocks()

	expected := &domain.InstagramPost{
		Caption:      "Fresh roast, fresh start.",
		Hashtags:     []string{"#coffee", "#morning"},
		Images:       []string{"https://example.com/roast.jpg"},
		FirstComment: "Read more at https://example.com/blog",
	}
	posts.On("CreatePostFromPage", mock.Anything, domain.PageTrigger{URL: "https://example.com/blog"}).
		Return(expected, nil)

	body := `{"url":"https://example.com/blog"}`
	req := httptest.NewRequest(http.MethodPost, "/posts/from-page", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreatePagePost(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data domain.InstagramPost `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, expected.Caption, resp.Data.Caption)
	assert.Equal(t, expected.Hashtags, resp.Data.Hashtags)
	posts.AssertExpectations(t)
}

func TestWorkflowHandler_CreatePagePost_ValidationError(t *testing.T) {
	handler, posts, _, _ := newWorkflowHandlerWithMocks()

	posts.On("CreatePostFromPage", mock.Anything, domain.PageTrigger{URL: "not-a-url"}).
		Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid url scheme: not-a-url"))

	body := `{"url":"not-a-url"}`
	req := httptest.NewRequest(http.MethodPost, "/posts/from-page", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreatePagePost(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowHandler_CreateCalendar_Success(t *testing.T) {
	handler, _, calendars, _ := newWorkflowHandlerWithMocks()

	expected := &service.CalendarPosts{
		Posts: []domain.GeneratedPost{
			{Topic: "cold brew basics", URL: "https://example.com/cold-brew"},
		},
		Attempted: 2,
		Succeeded: 1,
	}
	calendars.On("CreateCalendar", mock.Anything, mock.MatchedBy(func(trigger domain.CalendarTrigger) bool {
		return trigger.BrandVoice == "warm and direct" && trigger.PostsPerDay == 2 && trigger.ProjectID == "proj-1"
	})).Return(expected, nil)

	body := `{"brandVoice":"warm and direct","audience":"home baristas","description":"specialty coffee shop","dateRange":"2026-03-01 to 2026-03-07","postsPerDay":2,"projectId":"proj-1"}`
	req := httptest.NewRequest(http.MethodPost, "/calendars", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateCalendar(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data service.CalendarPosts `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Attempted)
	assert.Equal(t, 1, resp.Data.Succeeded)
	require.Len(t, resp.Data.Posts, 1)
	assert.Equal(t, "cold brew basics", resp.Data.Posts[0].Topic)
	calendars.AssertExpectations(t)
}

func TestWorkflowHandler_CreateCalendar_InvalidBody(t *testing.T) {
	handler, _, calendars, _ := newWorkflowHandlerWithMocks()

	req := httptest.NewRequest(http.MethodPost, "/calendars", strings.NewReader("{broken"))
	w := httptest.NewRecorder()

	handler.CreateCalendar(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	calendars.AssertNotCalled(t, "CreateCalendar")
}

func TestWorkflowHandler_AnalyzeWebsite_Success(t *testing.T) {
	handler, _, _, brandVoice := newWorkflowHandlerWithMocks()

	expected := &domain.BrandVoiceProfile{
		Description: "Specialty coffee roaster",
		BrandVoice:  "warm, knowledgeable",
		Audience:    "home brewers",
	}
	brandVoice.On("AnalyzeWebsite", mock.Anything, domain.BrandVoiceTrigger{URL: "https://example.com"}).
		Return(expected, nil)

	body := `{"url":"https://example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/brand-voice", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.AnalyzeWebsite(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data domain.BrandVoiceProfile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, expected.BrandVoice, resp.Data.BrandVoice)
	brandVoice.AssertExpectations(t)
}

func TestWorkflowHandler_AnalyzeWebsite_TransportError(t *testing.T) {
	handler, _, _, brandVoice := newWorkflowHandlerWithMocks()

	brandVoice.On("AnalyzeWebsite", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrCodeTransport, "failed to fetch https://example.com: status 503"))

	body := `{"url":"https://example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/brand-voice", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.AnalyzeWebsite(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
