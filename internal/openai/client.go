// Package openai wraps the OpenAI API behind the generation capabilities the
// pipelines consume: batched embeddings, structured-output text generation,
// and image description.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536

	// DefaultFastModel backs the "fast" generation capability
	DefaultFastModel = openai.GPT4oMini
	// DefaultQualityModel backs the "quality" generation capability
	DefaultQualityModel = openai.GPT4o

	// MaxEmbeddingRetries bounds retry attempts for embedding calls
	MaxEmbeddingRetries = 3

	defaultRetryBaseDelay = 500 * time.Millisecond
)

// Model selects a generation backend by capability rather than by vendor
// model name. The mapping to concrete model names is configuration.
type Model string

const (
	ModelFast    Model = "fast"
	ModelQuality Model = "quality"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyBatch is returned when an embedding batch has no texts
	ErrEmptyBatch = errors.New("embedding batch cannot be empty")
)

// API defines the subset of the OpenAI API the client uses
type API interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client exposes the generation capabilities backed by OpenAI
type Client struct {
	api            API
	dimensions     int
	fastModel      string
	qualityModel   string
	retryBaseDelay time.Duration
}

type openAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func newOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *openAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &openAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create one embedding per input
// text, preserving input order.
func (a *openAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	return embeddings, nil
}

func (a *openAIAdapter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return a.client.CreateChatCompletion(ctx, req)
}

// Config holds client configuration
type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	FastModel           string
	QualityModel        string
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	fastModel := cfg.FastModel
	if fastModel == "" {
		fastModel = DefaultFastModel
	}
	qualityModel := cfg.QualityModel
	if qualityModel == "" {
		qualityModel = DefaultQualityModel
	}
	return &Client{
		api:            newOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel),
		dimensions:     dimensions,
		fastModel:      fastModel,
		qualityModel:   qualityModel,
		retryBaseDelay: defaultRetryBaseDelay,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for a single text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	embeddings, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// GenerateEmbeddings generates one embedding per text in a single batched
// call, preserving input order. The call is retried with exponential backoff
// up to MaxEmbeddingRetries attempts.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}
	for _, text := range texts {
		if text == "" {
			return nil, ErrEmptyText
		}
	}

	var embeddings [][]float32
	err := retryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = c.api.CreateEmbeddings(ctx, texts)
		return err
	}, MaxEmbeddingRetries, c.retryBaseDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	for i, embedding := range embeddings {
		if len(embedding) != c.dimensions {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				ErrWrongDimensions, i, len(embedding), c.dimensions)
		}
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension the client expects.
func (c *Client) Dimensions() int {
	return c.dimensions
}

func (c *Client) modelName(model Model) string {
	switch model {
	case ModelQuality:
		return c.qualityModel
	default:
		return c.fastModel
	}
}

// GenerateText generates free-form text for a prompt.
func (c *Client) GenerateText(ctx context.Context, model Model, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName(model),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateObject generates a structured object for a prompt. The schema is
// derived from the result type and enforced in strict mode, so the call
// either yields an object that validates against it or fails.
func (c *Client) GenerateObject(ctx context.Context, model Model, prompt string, schemaName string, result any) error {
	if prompt == "" {
		return ErrEmptyText
	}

	schema, err := jsonschema.GenerateSchemaForType(result)
	if err != nil {
		return fmt.Errorf("failed to generate schema for %s: %w", schemaName, err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName(model),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to generate object: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("no completion choices returned")
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), result); err != nil {
		return fmt.Errorf("failed to decode structured output: %w", err)
	}
	return nil
}

// DescribeImage returns a natural-language description of the image at the
// given URL.
func (c *Client) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	if imageURL == "" {
		return "", ErrEmptyText
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.fastModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "describe the image"},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL}},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe image %s: %w", imageURL, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no description returned for image %s", imageURL)
	}
	return resp.Choices[0].Message.Content, nil
}

// retryWithBackoff retries an operation with exponential backoff.
func retryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
