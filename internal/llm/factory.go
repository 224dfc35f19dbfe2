// Package llm contains the language model backends that answer composed
// prompts.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"tradelaw/internal/config"
	"tradelaw/internal/domain"
)

// New builds the generator selected by cfg.Type.
func New(ctx context.Context, cfg config.GeneratorConfig) (domain.Generator, error) {
	switch cfg.Type {
	case "bedrock", "":
		return NewBedrock(ctx, cfg.Bedrock.Region, cfg.Bedrock.ModelID)
	case "openai":
		// local servers such as Ollama accept any key
		key := os.Getenv(cfg.OpenAI.APIKeyEnv)
		if key == "" && strings.Contains(cfg.OpenAI.BaseURL, "api.openai.com") {
			return nil, fmt.Errorf("missing API key in env %s", cfg.OpenAI.APIKeyEnv)
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:   key,
			BaseURL:  cfg.OpenAI.BaseURL,
			Model:    cfg.OpenAI.Model,
			Timeout:  time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			Referrer: cfg.OpenAI.Referrer,
			Title:    cfg.OpenAI.Title,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}
