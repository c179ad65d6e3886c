package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/vector"
	"github.com/cloo-solutions/postcraft/internal/workflow"
)

// ContentIndexName is the vector index all pipelines read and write.
const ContentIndexName = "content_embeddings"

// Fetcher defines the interface for retrieving web pages
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Document, error)
}

// Embedder defines the interface for generating embeddings
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// VectorIndex defines the interface for the vector index operations the
// pipelines need
type VectorIndex interface {
	EnsureIndex(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, name string, embeddings [][]float32, metadata []map[string]any) ([]string, error)
	Query(ctx context.Context, name string, embedding []float32, k int, filter *vector.Filter) ([]*vector.Record, error)
	Count(ctx context.Context, name string) (int64, error)
}

// EmbeddedContent is the payload of the embed step: one embedding per chunk,
// in chunk order.
type EmbeddedContent struct {
	Embeddings [][]float32
	Chunks     []domain.Chunk
}

// UpsertSummary is the payload of the upsert step.
type UpsertSummary struct {
	ChunksCount     int      `json:"chunks_count"`
	EmbeddingsCount int      `json:"embeddings_count"`
	IDs             []string `json:"-"`
}

// IndexerService runs the content indexing pipeline: fetch a page, chunk and
// embed it, and upsert the embeddings into the content index.
type IndexerService struct {
	fetcher  Fetcher
	embedder Embedder
	index    VectorIndex
	chunkCfg ChunkConfig
	pipeline *workflow.Workflow
}

// NewIndexerService creates a new IndexerService instance.
func NewIndexerService(fetcher Fetcher, embedder Embedder, index VectorIndex) *IndexerService {
	s := &IndexerService{
		fetcher:  fetcher,
		embedder: embedder,
		index:    index,
		chunkCfg: DefaultChunkConfig(),
	}
	s.pipeline = s.buildPipeline()
	return s
}

// Workflow returns the committed ingestion workflow.
func (s *IndexerService) Workflow() *workflow.Workflow {
	return s.pipeline
}

// Ingest runs the ingestion pipeline to completion for one URL.
func (s *IndexerService) Ingest(ctx context.Context, trigger domain.IngestTrigger) (*workflow.RunResult, error) {
	return workflow.RunToCompletion(ctx, s.pipeline, trigger)
}

func (s *IndexerService) buildPipeline() *workflow.Workflow {
	return workflow.New("content",
		workflow.WithTriggerValidator(func(data any) error {
			trigger, ok := data.(domain.IngestTrigger)
			if !ok {
				return domain.NewDomainError(domain.ErrCodeValidation, "trigger must be an IngestTrigger")
			}
			return domain.ValidateIngestTrigger(trigger)
		})).
		Step(workflow.Step{ID: "fetch-content", Execute: s.fetchContent}).
		Then(workflow.Step{ID: "embed-content", Execute: s.embedContent}).
		Then(workflow.Step{ID: "upsert-embeddings", Execute: s.upsertEmbeddings}).
		MustCommit()
}

func (s *IndexerService) fetchContent(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	trigger := ec.TriggerData().(domain.IngestTrigger)

	doc, err := s.fetcher.Fetch(ctx, trigger.URL)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *IndexerService) embedContent(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	payload, err := ec.RequireSuccess("fetch-content")
	if err != nil {
		return nil, err
	}
	doc := payload.(*domain.Document)
	trigger := ec.TriggerData().(domain.IngestTrigger)

	chunks := ChunkHTML(doc.HTML, trigger.Metadata, s.chunkCfg)
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	log.Printf("indexer: %d chunks after filtering for %s", len(chunks), doc.SourceURL)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks for %s: %w", doc.SourceURL, err)
	}

	return &EmbeddedContent{
		Embeddings: embeddings,
		Chunks:     chunks,
	}, nil
}

func (s *IndexerService) upsertEmbeddings(ctx context.Context, ec *workflow.ExecutionContext) (any, error) {
	payload, err := ec.RequireSuccess("embed-content")
	if err != nil {
		return nil, err
	}
	embedded := payload.(*EmbeddedContent)

	// Index creation failures are tolerated here: the index usually already
	// exists and the upsert below surfaces anything real.
	if err := s.index.EnsureIndex(ctx, ContentIndexName, s.embedder.Dimensions()); err != nil {
		log.Printf("indexer: error ensuring index %s: %v", ContentIndexName, err)
	}

	metadata := make([]map[string]any, len(embedded.Chunks))
	for i, chunk := range embedded.Chunks {
		metadata[i] = chunk.Metadata.Flatten()
	}

	ids, err := s.index.Upsert(ctx, ContentIndexName, embedded.Embeddings, metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert embeddings: %w", err)
	}

	// Advisory only: verifies the rows landed without gating the run on it.
	if count, countErr := s.index.Count(ctx, ContentIndexName); countErr != nil {
		log.Printf("indexer: failed to count records in %s: %v", ContentIndexName, countErr)
	} else {
		log.Printf("indexer: index %s now holds %d records", ContentIndexName, count)
	}

	return &UpsertSummary{
		ChunksCount:     len(embedded.Chunks),
		EmbeddingsCount: len(embedded.Embeddings),
		IDs:             ids,
	}, nil
}

// Search embeds the query text and returns the nearest records, optionally
// restricted to one project.
func (s *IndexerService) Search(ctx context.Context, query, projectID string, k int) ([]*vector.Record, error) {
	if query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}
	if k <= 0 {
		k = 10
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var filter *vector.Filter
	if projectID != "" {
		filter = &vector.Filter{Field: "project_id", Value: projectID}
	}
	return s.index.Query(ctx, ContentIndexName, embedding, k, filter)
}
