package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Concrete model names behind the "fast" and "quality" capabilities.
	FastModel    string `envconfig:"FAST_MODEL"`
	QualityModel string `envconfig:"QUALITY_MODEL"`

	// Static bearer token protecting the HTTP trigger surface. Empty
	// disables auth (local development only).
	APIToken string `envconfig:"API_TOKEN"`

	// Worker poll interval in seconds for the ingest queue.
	WorkerPollSeconds int `envconfig:"WORKER_POLL_SECONDS" default:"10"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("POSTCRAFT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasAuth() bool {
	return c.APIToken != ""
}
