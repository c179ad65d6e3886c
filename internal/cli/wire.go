package cli

import (
	"fmt"

	"github.com/cloo-solutions/postcraft/internal/config"
	"github.com/cloo-solutions/postcraft/internal/openai"
)

func loadConfigWithOpenAI() (*config.Config, *openai.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return nil, nil, fmt.Errorf("POSTCRAFT_OPENAI_API_KEY is required for this command")
	}

	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:       cfg.OpenAIAPIKey,
		FastModel:    cfg.FastModel,
		QualityModel: cfg.QualityModel,
	})
	return cfg, aiClient, nil
}
