package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/openai"
	"github.com/cloo-solutions/postcraft/internal/vector"
)

const postTestHTML = `<html><body>
	<h1>Summer Sale</h1>
	<p>Everything is twenty percent off this week.</p>
	<img src="https://cdn.example.com/sale.jpg">
</body></html>`

func newPostServiceForTest() (*PostService, *MockFetcher, *MockEmbedder, *MockGenerator, *MockDescriber, *MockIndex) {
	mockFetcher := new(MockFetcher)
	mockEmbedder := new(MockEmbedder)
	mockGenerator := new(MockGenerator)
	mockDescriber := new(MockDescriber)
	mockIndex := new(MockIndex)
	service := NewPostService(mockFetcher, mockEmbedder, mockGenerator, mockDescriber, mockIndex)
	return service, mockFetcher, mockEmbedder, mockGenerator, mockDescriber, mockIndex
}

func TestPostService_CreatePostFromPage_Success(t *testing.T) {
	service, mockFetcher, _, mockGenerator, mockDescriber, _ := newPostServiceForTest()

	pageURL := "https://example.com/sale"
	mockFetcher.On("Fetch", mock.Anything, pageURL).Return(&domain.Document{
		SourceURL: pageURL,
		HTML:      postTestHTML,
		ImageURLs: []string{"https://cdn.example.com/sale.jpg"},
	}, nil)
	mockDescriber.On("DescribeImage", mock.Anything, "https://cdn.example.com/sale.jpg").
		Return("A storefront covered in sale banners", nil)
	mockGenerator.On("GenerateObject", mock.Anything, openai.ModelQuality,
		mock.MatchedBy(func(prompt string) bool {
			return strings.Contains(prompt, "twenty percent off") && strings.Contains(prompt, "sale banners")
		}), "instagram_post", mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(4).(*instagramPostEnvelope)
			out.Post = domain.InstagramPost{
				Caption:      "Sale week is here",
				Hashtags:     []string{"#sale"},
				Images:       []string{"https://cdn.example.com/sale.jpg"},
				FirstComment: "Shop now: https://example.com/sale",
			}
		}).Return(nil)

	post, err := service.CreatePostFromPage(context.Background(), domain.PageTrigger{URL: pageURL})

	require.NoError(t, err)
	assert.Equal(t, "Sale week is here", post.Caption)
	assert.Equal(t, []string{"#sale"}, post.Hashtags)
	mockGenerator.AssertExpectations(t)
}

func TestPostService_CreatePostFromPage_FailedImagesDoNotFailPost(t *testing.T) {
	service, mockFetcher, _, mockGenerator, mockDescriber, _ := newPostServiceForTest()

	pageURL := "https://example.com/sale"
	mockFetcher.On("Fetch", mock.Anything, pageURL).Return(&domain.Document{
		SourceURL: pageURL,
		HTML:      postTestHTML,
		ImageURLs: []string{"https://cdn.example.com/broken.jpg"},
	}, nil)
	mockDescriber.On("DescribeImage", mock.Anything, "https://cdn.example.com/broken.jpg").
		Return("", errors.New("404 not found"))
	mockGenerator.On("GenerateObject", mock.Anything, openai.ModelQuality, mock.Anything,
		"instagram_post", mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(4).(*instagramPostEnvelope)
			out.Post = domain.InstagramPost{Caption: "Text-only post"}
		}).Return(nil)

	post, err := service.CreatePostFromPage(context.Background(), domain.PageTrigger{URL: pageURL})

	require.NoError(t, err)
	assert.Equal(t, "Text-only post", post.Caption)
}

func TestPostService_CreatePostFromPage_GenerationFailure(t *testing.T) {
	service, mockFetcher, _, mockGenerator, _, _ := newPostServiceForTest()

	pageURL := "https://example.com/sale"
	mockFetcher.On("Fetch", mock.Anything, pageURL).Return(&domain.Document{
		SourceURL: pageURL,
		HTML:      postTestHTML,
	}, nil)
	mockGenerator.On("GenerateObject", mock.Anything, openai.ModelQuality, mock.Anything,
		"instagram_post", mock.Anything).Return(errors.New("rate limited"))

	_, err := service.CreatePostFromPage(context.Background(), domain.PageTrigger{URL: pageURL})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate-post")
}

func TestPostService_CreatePostForTopic_Success(t *testing.T) {
	service, mockFetcher, mockEmbedder, mockGenerator, _, mockIndex := newPostServiceForTest()

	trigger := domain.PostTrigger{Topic: "summer sale", SearchTerms: "sale discount summer", ProjectID: "p1"}
	embedding := []float32{0.5, 0.5}

	mockEmbedder.On("GenerateEmbedding", mock.Anything, trigger.SearchTerms).Return(embedding, nil)
	mockIndex.On("Query", mock.Anything, ContentIndexName, embedding, relatedContentLimit,
		&vector.Filter{Field: "project_id", Value: "p1"}).Return([]*vector.Record{
		{ID: "r1", Score: 0.95, Metadata: map[string]any{"url": "https://example.com/sale"}},
	}, nil)

	// The nested page-to-post run fetches the related url.
	mockFetcher.On("Fetch", mock.Anything, "https://example.com/sale").Return(&domain.Document{
		SourceURL: "https://example.com/sale",
		HTML:      postTestHTML,
	}, nil)
	mockGenerator.On("GenerateObject", mock.Anything, openai.ModelQuality, mock.Anything,
		"instagram_post", mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(4).(*instagramPostEnvelope)
			out.Post = domain.InstagramPost{Caption: "Nested run post"}
		}).Return(nil)

	post, err := service.CreatePostForTopic(context.Background(), trigger)

	require.NoError(t, err)
	assert.Equal(t, "summer sale", post.Topic)
	assert.Equal(t, "https://example.com/sale", post.URL)
	assert.Equal(t, "Nested run post", post.Post.Caption)
}

func TestPostService_CreatePostForTopic_NoRelatedContent(t *testing.T) {
	service, _, mockEmbedder, _, _, mockIndex := newPostServiceForTest()

	trigger := domain.PostTrigger{Topic: "obscure topic", SearchTerms: "nothing indexed", ProjectID: "p1"}

	mockEmbedder.On("GenerateEmbedding", mock.Anything, trigger.SearchTerms).Return([]float32{0.1}, nil)
	mockIndex.On("Query", mock.Anything, ContentIndexName, mock.Anything, relatedContentLimit,
		mock.Anything).Return([]*vector.Record{}, nil)

	_, err := service.CreatePostForTopic(context.Background(), trigger)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "obscure topic")
}

func TestPostService_CreatePostForTopic_NestedRunFailurePropagates(t *testing.T) {
	service, mockFetcher, mockEmbedder, _, _, mockIndex := newPostServiceForTest()

	trigger := domain.PostTrigger{Topic: "summer sale", SearchTerms: "sale", ProjectID: "p1"}

	mockEmbedder.On("GenerateEmbedding", mock.Anything, trigger.SearchTerms).Return([]float32{0.1}, nil)
	mockIndex.On("Query", mock.Anything, ContentIndexName, mock.Anything, relatedContentLimit,
		mock.Anything).Return([]*vector.Record{
		{ID: "r1", Metadata: map[string]any{"url": "https://example.com/dead"}},
	}, nil)
	mockFetcher.On("Fetch", mock.Anything, "https://example.com/dead").Return(nil, domain.ErrFetchFailed)

	_, err := service.CreatePostForTopic(context.Background(), trigger)

	assert.Error(t, err)
}

func TestPostService_CreatePostForTopic_InvalidTrigger(t *testing.T) {
	service, _, _, _, _, _ := newPostServiceForTest()

	_, err := service.CreatePostForTopic(context.Background(), domain.PostTrigger{Topic: "t"})
	assert.Error(t, err)
}

func TestRelatedContent_SourceURL(t *testing.T) {
	related := &RelatedContent{Records: []*vector.Record{
		{ID: "r1", Metadata: map[string]any{"title": "no url here"}},
		{ID: "r2", Metadata: map[string]any{"url": "https://example.com/found"}},
	}}
	assert.Equal(t, "https://example.com/found", related.SourceURL())

	empty := &RelatedContent{}
	assert.Empty(t, empty.SourceURL())
}
