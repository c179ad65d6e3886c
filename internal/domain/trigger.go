package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Triggers are the typed inputs of the workflows. Each is validated once,
// before the first step of a run executes; steps may assume validated,
// present fields.

// IngestTrigger starts the content indexing pipeline.
type IngestTrigger struct {
	URL      string
	Metadata map[string]string
}

// ValidateIngestTrigger validates an IngestTrigger
func ValidateIngestTrigger(t IngestTrigger) error {
	if err := ValidateURL(t.URL); err != nil {
		return err
	}
	return nil
}

// PostTrigger starts the post-from-calendar workflow for one topic.
type PostTrigger struct {
	Topic       string
	SearchTerms string
	ProjectID   string
}

// ValidatePostTrigger validates a PostTrigger
func ValidatePostTrigger(t PostTrigger) error {
	if strings.TrimSpace(t.Topic) == "" {
		return NewDomainError(ErrCodeValidation, "topic is required")
	}
	if strings.TrimSpace(t.SearchTerms) == "" {
		return NewDomainError(ErrCodeValidation, "search terms are required")
	}
	if strings.TrimSpace(t.ProjectID) == "" {
		return NewDomainError(ErrCodeValidation, "project id is required")
	}
	return nil
}

// CalendarTrigger starts the content calendar workflow.
type CalendarTrigger struct {
	BrandVoice  string
	Audience    string
	Description string
	DateRange   string
	PostsPerDay int
	ProjectID   string
}

// ValidateCalendarTrigger validates a CalendarTrigger
func ValidateCalendarTrigger(t CalendarTrigger) error {
	if strings.TrimSpace(t.BrandVoice) == "" {
		return NewDomainError(ErrCodeValidation, "brand voice is required")
	}
	if strings.TrimSpace(t.Audience) == "" {
		return NewDomainError(ErrCodeValidation, "audience is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return NewDomainError(ErrCodeValidation, "description is required")
	}
	if strings.TrimSpace(t.DateRange) == "" {
		return NewDomainError(ErrCodeValidation, "date range is required")
	}
	if t.PostsPerDay <= 0 {
		return NewDomainError(ErrCodeValidation, "posts per day must be positive")
	}
	if strings.TrimSpace(t.ProjectID) == "" {
		return NewDomainError(ErrCodeValidation, "project id is required")
	}
	return nil
}

// PageTrigger starts the page-to-post workflow for one URL.
type PageTrigger struct {
	URL string
}

// ValidatePageTrigger validates a PageTrigger
func ValidatePageTrigger(t PageTrigger) error {
	return ValidateURL(t.URL)
}

// BrandVoiceTrigger starts the website analysis workflow.
type BrandVoiceTrigger struct {
	URL string
}

// ValidateBrandVoiceTrigger validates a BrandVoiceTrigger
func ValidateBrandVoiceTrigger(t BrandVoiceTrigger) error {
	return ValidateURL(t.URL)
}

func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return NewDomainError(ErrCodeValidation, "url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return NewDomainErrorWithCause(ErrCodeValidation, fmt.Sprintf("invalid url: %s", raw), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("invalid url scheme: %s", raw))
	}
	if parsed.Host == "" {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("invalid url host: %s", raw))
	}
	return nil
}
