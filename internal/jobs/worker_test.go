package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/postcraft/internal/domain"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockIngestJobRepository is a mock implementation of IngestJobRepository
type MockIngestJobRepository struct {
	mock.Mock
}

func (m *MockIngestJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IngestJob), args.Error(1)
}

func (m *MockIngestJobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.IngestJobStatus, errMsg string) error {
	args := m.Called(ctx, jobID, status, errMsg)
	return args.Error(0)
}

func (m *MockIngestJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockIngestJobRepository) Requeue(ctx context.Context, jobID string, errMsg string) error {
	args := m.Called(ctx, jobID, errMsg)
	return args.Error(0)
}

// MockIngester is a mock implementation of Ingester
type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) Ingest(ctx context.Context, trigger domain.IngestTrigger) error {
	args := m.Called(ctx, trigger)
	return args.Error(0)
}

func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestIngestWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockIngester := new(MockIngester)

	mockRepo.On("ClaimPending", mock.Anything, 100).Return([]*domain.IngestJob{}, nil)

	worker := NewIngestWorker(mockRepo, mockIngester)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIngester.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestIngestWorker_ProcessJobs_Success(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockIngester := new(MockIngester)

	job := &domain.IngestJob{
		ID:       "job-1",
		URL:      "https://example.com/page",
		Metadata: map[string]string{"project_id": "p1"},
		Status:   domain.IngestJobStatusPending,
		Retries:  0,
	}

	mockRepo.On("ClaimPending", mock.Anything, 100).Return([]*domain.IngestJob{job}, nil)
	mockIngester.On("Ingest", mock.Anything, domain.IngestTrigger{
		URL:      "https://example.com/page",
		Metadata: map[string]string{"project_id": "p1"},
	}).Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IngestJobStatusCompleted, "").Return(nil)

	worker := NewIngestWorker(mockRepo, mockIngester)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIngester.AssertExpectations(t)
}

func TestIngestWorker_ProcessJobs_FailureWithRetry(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockIngester := new(MockIngester)

	job := &domain.IngestJob{
		ID:      "job-1",
		URL:     "https://example.com/page",
		Status:  domain.IngestJobStatusPending,
		Retries: 0,
	}

	mockRepo.On("ClaimPending", mock.Anything, 100).Return([]*domain.IngestJob{job}, nil)
	mockIngester.On("Ingest", mock.Anything, mock.Anything).Return(errors.New("fetch failed"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("Requeue", mock.Anything, "job-1", mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewIngestWorker(mockRepo, mockIngester)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, "job-1", domain.IngestJobStatusCompleted, mock.Anything)
	mockIngester.AssertExpectations(t)
}

func TestIngestWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockIngester := new(MockIngester)

	job := &domain.IngestJob{
		ID:      "job-1",
		URL:     "https://example.com/page",
		Status:  domain.IngestJobStatusPending,
		Retries: 2, // Already retried twice
	}

	mockRepo.On("ClaimPending", mock.Anything, 100).Return([]*domain.IngestJob{job}, nil)
	mockIngester.On("Ingest", mock.Anything, mock.Anything).Return(errors.New("fetch failed"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IngestJobStatusFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewIngestWorker(mockRepo, mockIngester)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIngester.AssertExpectations(t)
}

func TestIngestWorker_ProcessJobs_MultipleJobsOneFails(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockIngester := new(MockIngester)

	jobs := []*domain.IngestJob{
		{ID: "job-1", URL: "https://example.com/a", Status: domain.IngestJobStatusPending},
		{ID: "job-2", URL: "https://example.com/b", Status: domain.IngestJobStatusPending},
	}

	mockRepo.On("ClaimPending", mock.Anything, 100).Return(jobs, nil)

	mockIngester.On("Ingest", mock.Anything, mock.MatchedBy(func(t domain.IngestTrigger) bool {
		return t.URL == "https://example.com/a"
	})).Return(errors.New("boom"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("Requeue", mock.Anything, "job-1", mock.Anything).Return(nil)

	mockIngester.On("Ingest", mock.Anything, mock.MatchedBy(func(t domain.IngestTrigger) bool {
		return t.URL == "https://example.com/b"
	})).Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-2", domain.IngestJobStatusCompleted, "").Return(nil)

	worker := NewIngestWorker(mockRepo, mockIngester)
	err := worker.ProcessJobs(context.Background())

	// One bad job never blocks the rest of the batch.
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIngester.AssertExpectations(t)
}

func TestIngestWorker_ProcessJobs_RepositoryError(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockIngester := new(MockIngester)

	mockRepo.On("ClaimPending", mock.Anything, 100).Return(nil, errors.New("database error"))

	worker := NewIngestWorker(mockRepo, mockIngester)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim pending jobs")
	mockRepo.AssertExpectations(t)
}
