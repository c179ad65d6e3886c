package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/openai"
	"github.com/cloo-solutions/postcraft/internal/workflow"
)

// BrandVoiceService derives a brand profile from a website.
type BrandVoiceService struct {
	fetcher   Fetcher
	generator Generator
	pipeline  *workflow.Workflow
}

// NewBrandVoiceService creates a new BrandVoiceService instance.
func NewBrandVoiceService(fetcher Fetcher, generator Generator) *BrandVoiceService {
	s := &BrandVoiceService{
		fetcher:   fetcher,
		generator: generator,
	}
	s.pipeline = s.buildPipeline()
	return s
}

// Workflow returns the committed brand voice workflow.
func (s *BrandVoiceService) Workflow() *workflow.Workflow {
	return s.pipeline
}

// AnalyzeWebsite runs the brand voice workflow to completion and returns the
// derived profile.
func (s *BrandVoiceService) AnalyzeWebsite(ctx context.Context, trigger domain.BrandVoiceTrigger) (*domain.BrandVoiceProfile, error) {
	result, err := workflow.RunToCompletion(ctx, s.pipeline, trigger)
	if err != nil {
		return nil, err
	}
	payload, err := result.RequirePayload("analyze-website")
	if err != nil {
		return nil, err
	}
	profile := payload.(domain.BrandVoiceProfile)
	return &profile, nil
}

func (s *BrandVoiceService) buildPipeline() *workflow.Workflow {
	return workflow.New("create-brand-voice",
		workflow.WithTriggerValidator(func(data any) error {
			trigger, ok := data.(domain.BrandVoiceTrigger)
			if !ok {
				return domain.NewDomainError(domain.ErrCodeValidation, "trigger must be a BrandVoiceTrigger")
			}
			return domain.ValidateBrandVoiceTrigger(trigger)
		})).
		Step(workflow.Step{ID: "analyze-website", Execute: s.analyzeWebsite}).
		MustCommit()
}

func (s *BrandVoiceService) analyzeWebsite(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	trigger := ec.TriggerData().(domain.BrandVoiceTrigger)

	doc, err := s.fetcher.Fetch(ctx, trigger.URL)
	if err != nil {
		return nil, err
	}

	var profile domain.BrandVoiceProfile
	if err := s.generator.GenerateObject(ctx, openai.ModelFast, brandVoicePrompt(doc.HTML), "brand_voice", &profile); err != nil {
		return nil, fmt.Errorf("failed to analyze website %s: %w", trigger.URL, err)
	}
	return profile, nil
}
