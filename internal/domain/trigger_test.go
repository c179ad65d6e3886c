package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIngestTrigger_Valid(t *testing.T) {
	err := ValidateIngestTrigger(IngestTrigger{
		URL:      "https://example.com/blog/post",
		Metadata: map[string]string{"title": "Post"},
	})
	assert.NoError(t, err)
}

func TestValidateIngestTrigger_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"no scheme", "example.com/page"},
		{"bad scheme", "ftp://example.com"},
		{"no host", "https://"},
		{"garbage", "ht tp://bad url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestTrigger(IngestTrigger{URL: tt.url})
			assert.Error(t, err)

			domainErr, ok := err.(*DomainError)
			assert.True(t, ok)
			assert.Equal(t, ErrCodeValidation, domainErr.Code)
		})
	}
}

func TestValidatePostTrigger(t *testing.T) {
	valid := PostTrigger{
		Topic:       "Sustainable fashion",
		SearchTerms: "sustainable fashion eco friendly",
		ProjectID:   "project-1",
	}
	assert.NoError(t, ValidatePostTrigger(valid))

	missingTopic := valid
	missingTopic.Topic = " "
	assert.Error(t, ValidatePostTrigger(missingTopic))

	missingTerms := valid
	missingTerms.SearchTerms = ""
	assert.Error(t, ValidatePostTrigger(missingTerms))

	missingProject := valid
	missingProject.ProjectID = ""
	assert.Error(t, ValidatePostTrigger(missingProject))
}

func TestValidateCalendarTrigger(t *testing.T) {
	valid := CalendarTrigger{
		BrandVoice:  "playful",
		Audience:    "young professionals",
		Description: "an outdoor gear shop",
		DateRange:   "2026-09-01 to 2026-09-07",
		PostsPerDay: 2,
		ProjectID:   "project-1",
	}
	assert.NoError(t, ValidateCalendarTrigger(valid))

	zeroPosts := valid
	zeroPosts.PostsPerDay = 0
	assert.Error(t, ValidateCalendarTrigger(zeroPosts))

	negativePosts := valid
	negativePosts.PostsPerDay = -1
	assert.Error(t, ValidateCalendarTrigger(negativePosts))

	missingVoice := valid
	missingVoice.BrandVoice = ""
	assert.Error(t, ValidateCalendarTrigger(missingVoice))
}

func TestValidateIngestJob(t *testing.T) {
	job := &IngestJob{
		ID:     "job-1",
		URL:    "https://example.com",
		Status: IngestJobStatusPending,
	}
	assert.NoError(t, ValidateIngestJob(job))

	assert.Error(t, ValidateIngestJob(nil))

	noID := *job
	noID.ID = ""
	assert.Error(t, ValidateIngestJob(&noID))

	badStatus := *job
	badStatus.Status = "unknown"
	assert.Error(t, ValidateIngestJob(&badStatus))

	badRetries := *job
	badRetries.Retries = -1
	assert.Error(t, ValidateIngestJob(&badRetries))
}

func TestChunkMetadata_Flatten(t *testing.T) {
	meta := ChunkMetadata{
		Fields:     map[string]string{"title": "T", "project_id": "p1"},
		ChunkIndex: 3,
		Heading:    "Overview",
		ParentTag:  "h2",
	}

	flat := meta.Flatten()
	assert.Equal(t, "T", flat["title"])
	assert.Equal(t, "p1", flat["project_id"])
	assert.Equal(t, 3, flat["chunk_index"])
	assert.Equal(t, "Overview", flat["heading"])
	assert.Equal(t, "h2", flat["parent_tag"])
}

func TestChunkMetadata_Flatten_OmitsEmptyOptionalFields(t *testing.T) {
	meta := ChunkMetadata{ChunkIndex: 0}

	flat := meta.Flatten()
	assert.Equal(t, 0, flat["chunk_index"])
	_, hasHeading := flat["heading"]
	assert.False(t, hasHeading)
	_, hasParent := flat["parent_tag"]
	assert.False(t, hasParent)
}
