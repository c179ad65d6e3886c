package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/openai"
	"github.com/cloo-solutions/postcraft/internal/vector"
)

// MockFetcher mocks the content fetcher
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

// MockEmbedder mocks the embedding client
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

// MockGenerator mocks structured-output generation. Tests populate the
// result pointer through Run on the expectation.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateObject(ctx context.Context, model openai.Model, prompt string, schemaName string, result any) error {
	args := m.Called(ctx, model, prompt, schemaName, result)
	return args.Error(0)
}

// MockDescriber mocks the image describer
type MockDescriber struct {
	mock.Mock
}

func (m *MockDescriber) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	args := m.Called(ctx, imageURL)
	return args.String(0), args.Error(1)
}

// MockIndex mocks the vector index
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
