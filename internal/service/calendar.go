package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/openai"
	"github.com/cloo-solutions/postcraft/internal/workflow"
)

// calendarItemTimeout bounds how long one topic's post generation may take
// before the coordinator gives up on it.
const calendarItemTimeout = 300 * time.Second

// CalendarPosts is the payload of the create-instagram-posts step. Posts
// holds only the topics that produced a post; Attempted counts all of them.
type CalendarPosts struct {
	Posts     []domain.GeneratedPost `json:"posts"`
	Attempted int                    `json:"attempted"`
	Succeeded int                    `json:"succeeded"`
}

// CalendarService plans a content calendar and generates one post per
// planned topic, in parallel, without letting one bad topic sink the batch.
type CalendarService struct {
	generator Generator
	posts     *PostService
	pipeline  *workflow.Workflow
}

// NewCalendarService creates a new CalendarService instance.
func NewCalendarService(generator Generator, posts *PostService) *CalendarService {
	s := &CalendarService{
		generator: generator,
		posts:     posts,
	}
	s.pipeline = s.buildPipeline()
	return s
}

// Workflow returns the committed content calendar workflow.
func (s *CalendarService) Workflow() *workflow.Workflow {
	return s.pipeline
}

// CreateCalendar runs the calendar workflow to completion and returns the
// generated posts.
func (s *CalendarService) CreateCalendar(ctx context.Context, trigger domain.CalendarTrigger) (*CalendarPosts, error) {
	result, err := workflow.RunToCompletion(ctx, s.pipeline, trigger)
	if err != nil {
		return nil, err
	}
	payload, err := result.RequirePayload("create-instagram-posts")
	if err != nil {
		return nil, err
	}
	return payload.(*CalendarPosts), nil
}

func (s *CalendarService) buildPipeline() *workflow.Workflow {
	return workflow.New("create-instagram-content-calendar",
		workflow.WithTriggerValidator(func(data any) error {
			trigger, ok := data.(domain.CalendarTrigger)
			if !ok {
				return domain.NewDomainError(domain.ErrCodeValidation, "trigger must be a CalendarTrigger")
			}
			return domain.ValidateCalendarTrigger(trigger)
		})).
		Step(workflow.Step{ID: "create-content-calendar", Execute: s.createContentCalendar}).
		Then(workflow.Step{ID: "create-instagram-posts", Execute: s.createInstagramPosts}).
		MustCommit()
}

func (s *CalendarService) createContentCalendar(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	trigger := ec.TriggerData().(domain.CalendarTrigger)

	prompt := contentCalendarPrompt(trigger.BrandVoice, trigger.Audience, trigger.Description,
		trigger.DateRange, trigger.PostsPerDay)

	var calendar domain.ContentCalendar
	if err := s.generator.GenerateObject(ctx, openai.ModelFast, prompt, "content_calendar", &calendar); err != nil {
		return nil, fmt.Errorf("failed to generate content calendar: %w", err)
	}
	if len(calendar.Content) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeInternalError, "generated calendar has no items")
	}

	log.Printf("calendar: planned %d topics", len(calendar.Content))
	return calendar, nil
}

func (s *CalendarService) createInstagramPosts(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	trigger := ec.TriggerData().(domain.CalendarTrigger)

	payload, err := ec.RequireSuccess("create-content-calendar")
	if err != nil {
		return nil, err
	}
	calendar := payload.(domain.ContentCalendar)

	results, report := workflow.FanOut(ctx, calendar.Content,
		func(ctx context.Context, item domain.CalendarItem) (domain.GeneratedPost, error) {
			post, err := s.posts.CreatePostForTopic(ctx, domain.PostTrigger{
				Topic:       item.Topic,
				SearchTerms: joinSearchTerms(item.SearchTerms),
				ProjectID:   trigger.ProjectID,
			})
			if err != nil {
				return domain.GeneratedPost{}, err
			}
			return *post, nil
		}, calendarItemTimeout)

	posts := make([]domain.GeneratedPost, 0, report.Succeeded)
	for _, result := range results {
		if result.OK {
			posts = append(posts, result.Value)
		}
	}

	log.Printf("calendar: completed %d/%d posts", report.Succeeded, report.Attempted)

	return &CalendarPosts{
		Posts:     posts,
		Attempted: report.Attempted,
		Succeeded: report.Succeeded,
	}, nil
}
