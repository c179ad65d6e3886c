package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/openai"
	"github.com/cloo-solutions/postcraft/internal/vector"
	"github.com/cloo-solutions/postcraft/internal/workflow"
)

// relatedContentLimit is how many index records back a post.
const relatedContentLimit = 10

// Generator defines the interface for structured-output generation
type Generator interface {
	GenerateObject(ctx context.Context, model openai.Model, prompt string, schemaName string, result any) error
}

// RelatedContent is the payload of the find-related-content step.
type RelatedContent struct {
	Records []*vector.Record
}

// SourceURL returns the url of the most similar record, if any record
// carries one.
func (r *RelatedContent) SourceURL() string {
	for _, record := range r.Records {
		if url, ok := record.Metadata["url"].(string); ok && url != "" {
			return url
		}
	}
	return ""
}

// instagramPostEnvelope mirrors the structured output schema of the
// generation step.
type instagramPostEnvelope struct {
	Post domain.InstagramPost `json:"post"`
}

// PostService generates Instagram posts from indexed content. It owns two
// workflows: page-to-post, which turns one URL into a post, and
// post-from-calendar, which finds the best URL for a topic and nests a
// page-to-post run for it.
type PostService struct {
	fetcher   Fetcher
	embedder  Embedder
	generator Generator
	describer ImageDescriber
	index     VectorIndex
	chunkCfg  ChunkConfig

	pagePost     *workflow.Workflow
	calendarPost *workflow.Workflow
}

// NewPostService creates a new PostService instance.
func NewPostService(fetcher Fetcher, embedder Embedder, generator Generator, describer ImageDescriber, index VectorIndex) *PostService {
	s := &PostService{
		fetcher:   fetcher,
		embedder:  embedder,
		generator: generator,
		describer: describer,
		index:     index,
		chunkCfg:  DefaultChunkConfig(),
	}
	s.pagePost = s.buildPagePostWorkflow()
	s.calendarPost = s.buildCalendarPostWorkflow()
	return s
}

// PagePostWorkflow returns the committed page-to-post workflow.
func (s *PostService) PagePostWorkflow() *workflow.Workflow {
	return s.pagePost
}

// CalendarPostWorkflow returns the committed post-from-calendar workflow.
func (s *PostService) CalendarPostWorkflow() *workflow.Workflow {
	return s.calendarPost
}

// CreatePostFromPage runs the page-to-post workflow to completion and returns
// the generated post.
func (s *PostService) CreatePostFromPage(ctx context.Context, trigger domain.PageTrigger) (*domain.InstagramPost, error) {
	result, err := workflow.RunToCompletion(ctx, s.pagePost, trigger)
	if err != nil {
		return nil, err
	}
	payload, err := result.RequirePayload("generate-post")
	if err != nil {
		return nil, err
	}
	post := payload.(domain.InstagramPost)
	return &post, nil
}

// CreatePostForTopic runs the post-from-calendar workflow to completion and
// returns the generated post with its topic and source url.
func (s *PostService) CreatePostForTopic(ctx context.Context, trigger domain.PostTrigger) (*domain.GeneratedPost, error) {
	result, err := workflow.RunToCompletion(ctx, s.calendarPost, trigger)
	if err != nil {
		return nil, err
	}
	payload, err := result.RequirePayload("create-post")
	if err != nil {
		return nil, err
	}
	post := payload.(domain.GeneratedPost)
	return &post, nil
}

func (s *PostService) buildPagePostWorkflow() *workflow.Workflow {
	return workflow.New("create-instagram-post",
		workflow.WithTriggerValidator(func(data any) error {
			trigger, ok := data.(domain.PageTrigger)
			if !ok {
				return domain.NewDomainError(domain.ErrCodeValidation, "trigger must be a PageTrigger")
			}
			return domain.ValidatePageTrigger(trigger)
		})).
		Step(workflow.Step{ID: "fetch-url", Execute: s.fetchPage}).
		Then(workflow.Step{ID: "describe-images", Execute: s.describeImages}).
		Then(workflow.Step{ID: "generate-post", Execute: s.generatePost}).
		MustCommit()
}

func (s *PostService) buildCalendarPostWorkflow() *workflow.Workflow {
	return workflow.New("create-post-from-calendar",
		workflow.WithTriggerValidator(func(data any) error {
			trigger, ok := data.(domain.PostTrigger)
			if !ok {
				return domain.NewDomainError(domain.ErrCodeValidation, "trigger must be a PostTrigger")
			}
			return domain.ValidatePostTrigger(trigger)
		})).
		Step(workflow.Step{ID: "find-related-content", Execute: s.findRelatedContent}).
		Then(workflow.Step{ID: "create-post", Execute: s.createPost}).
		MustCommit()
}

// fetchedPage is the payload of the fetch-url step.
type fetchedPage struct {
	Document *domain.Document
	Chunks   []domain.Chunk
}

func (s *PostService) fetchPage(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	trigger := ec.TriggerData().(domain.PageTrigger)

	doc, err := s.fetcher.Fetch(ctx, trigger.URL)
	if err != nil {
		return nil, err
	}

	chunks := ChunkHTML(doc.HTML, nil, s.chunkCfg)
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	return &fetchedPage{Document: doc, Chunks: chunks}, nil
}

func (s *PostService) describeImages(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	payload, err := ec.RequireSuccess("fetch-url")
	if err != nil {
		return nil, err
	}
	page := payload.(*fetchedPage)

	log.Printf("post: describing %d images for %s", len(page.Document.ImageURLs), page.Document.SourceURL)
	return DescribeImages(ctx, s.describer, page.Document.ImageURLs), nil
}

func (s *PostService) generatePost(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	pagePayload, err := ec.RequireSuccess("fetch-url")
	if err != nil {
		return nil, err
	}
	page := pagePayload.(*fetchedPage)

	imagesPayload, err := ec.RequireSuccess("describe-images")
	if err != nil {
		return nil, err
	}
	images := imagesPayload.(*ImageSet)

	prompt := buildPostPrompt(page.Chunks, images.Images)

	var envelope instagramPostEnvelope
	if err := s.generator.GenerateObject(ctx, openai.ModelQuality, prompt, "instagram_post", &envelope); err != nil {
		return nil, fmt.Errorf("failed to generate post for %s: %w", page.Document.SourceURL, err)
	}
	return envelope.Post, nil
}

func (s *PostService) findRelatedContent(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	trigger := ec.TriggerData().(domain.PostTrigger)

	embedding, err := s.embedder.GenerateEmbedding(ctx, trigger.SearchTerms)
	if err != nil {
		return nil, fmt.Errorf("failed to embed search terms: %w", err)
	}

	records, err := s.index.Query(ctx, ContentIndexName, embedding, relatedContentLimit,
		&vector.Filter{Field: "project_id", Value: trigger.ProjectID})
	if err != nil {
		return nil, fmt.Errorf("failed to query related content: %w", err)
	}

	log.Printf("post: found %d related records for topic %q", len(records), trigger.Topic)
	return &RelatedContent{Records: records}, nil
}

func (s *PostService) createPost(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	trigger := ec.TriggerData().(domain.PostTrigger)

	payload, err := ec.RequireSuccess("find-related-content")
	if err != nil {
		return nil, err
	}
	related := payload.(*RelatedContent)

	url := related.SourceURL()
	if url == "" {
		return nil, domain.NewDomainError(domain.ErrCodeNotFound,
			fmt.Sprintf("no indexed content found for topic %q", trigger.Topic))
	}

	log.Printf("post: creating post for topic %q from %s", trigger.Topic, url)

	result, err := workflow.RunToCompletion(ctx, s.pagePost, domain.PageTrigger{URL: url})
	if err != nil {
		return nil, fmt.Errorf("failed to run page-to-post workflow: %w", err)
	}
	postPayload, err := result.RequirePayload("generate-post")
	if err != nil {
		return nil, fmt.Errorf("failed to generate post for %s: %w", url, err)
	}

	return domain.GeneratedPost{
		Topic: trigger.Topic,
		URL:   url,
		Post:  postPayload.(domain.InstagramPost),
	}, nil
}

// joinSearchTerms flattens a calendar item's search terms into the single
// query string the find step embeds.
func joinSearchTerms(terms []string) string {
	return strings.Join(terms, " ")
}
