package cli

import (
	"context"
	"testing"

	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/jobs"
	"github.com/cloo-solutions/postcraft/internal/service"
	"github.com/cloo-solutions/postcraft/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (*domain.Document, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) Dimensions() int {
	args := m.Called()
	return args.Int(0)
}

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) EnsureIndex(ctx context.Context, name string, dimension int) error {
	args := m.Called(ctx, name, dimension)
	return args.Error(0)
}

func (m *MockIndex) Upsert(ctx context.Context, name string, embeddings [][]float32, metadata []map[string]any) ([]string, error) {
	args := m.Called(ctx, name, embeddings, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockIndex) Query(ctx context.Context, name string, embedding []float32, k int, filter *vector.Filter) ([]*vector.Record, error) {
	args := m.Called(ctx, name, embedding, k, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vector.Record), args.Error(1)
}

func (m *MockIndex) Count(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

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

func newFailingIndexer() (*service.IndexerService, *MockFetcher) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrCodeTransport, "failed to fetch url"))
	return service.NewIndexerService(fetcher, new(MockEmbedder), new(MockIndex)), fetcher
}

func TestIndexerIngester_FailedStepSurfacesError(t *testing.T) {
	indexer, fetcher := newFailingIndexer()
	ingester := &indexerIngester{indexer: indexer}

	err := ingester.Ingest(context.Background(), domain.IngestTrigger{URL: "https://example.com/dead"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch-content")
	fetcher.AssertExpectations(t)
}

func TestIndexerIngester_SuccessfulRunReturnsNil(t *testing.T) {
	fetcher := new(MockFetcher)
	embedder := new(MockEmbedder)
	index := new(MockIndex)

	fetcher.On("Fetch", mock.Anything, "https://example.com").Return(&domain.Document{
		SourceURL: "https://example.com",
		HTML:      "<h1>Roastery</h1><p>We roast single-origin beans in small batches every week.</p>",
	}, nil)
	embedder.On("GenerateEmbeddings", mock.Anything, mock.Anything).Return([][]float32{{0.1, 0.2}}, nil)
	embedder.On("Dimensions").Return(2)
	index.On("EnsureIndex", mock.Anything, service.ContentIndexName, 2).Return(nil)
	index.On("Upsert", mock.Anything, service.ContentIndexName, mock.Anything, mock.Anything).
		Return([]string{"id-1"}, nil)
	index.On("Count", mock.Anything, service.ContentIndexName).Return(int64(1), nil)

	ingester := &indexerIngester{indexer: service.NewIndexerService(fetcher, embedder, index)}

	err := ingester.Ingest(context.Background(), domain.IngestTrigger{URL: "https://example.com"})

	assert.NoError(t, err)
	index.AssertExpectations(t)
}

// A job whose pipeline run fails mid-chain must be retried, never marked
// completed: the run itself returns nil error and carries the failure in its
// results.
func TestIngestWorker_FailedRunIsRequeuedNotCompleted(t *testing.T) {
	indexer, _ := newFailingIndexer()

	repo := new(MockIngestJobRepository)
	job := &domain.IngestJob{
		ID:     "job-1",
		URL:    "https://example.com/dead",
		Status: domain.IngestJobStatusProcessing,
	}
	repo.On("ClaimPending", mock.Anything, mock.Anything).Return([]*domain.IngestJob{job}, nil)
	repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	repo.On("Requeue", mock.Anything, "job-1", mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := jobs.NewIngestWorker(repo, &indexerIngester{indexer: indexer})
	err := worker.ProcessJobs(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "UpdateStatus",
		mock.Anything, "job-1", domain.IngestJobStatusCompleted, mock.Anything)
}
