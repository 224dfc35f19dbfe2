package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradelaw/internal/config"
)

func TestNewUnknownGenerator(t *testing.T) {
	_, err := New(context.Background(), config.GeneratorConfig{Type: "telepathy"})
	assert.ErrorContains(t, err, "unknown generator: telepathy")
}

func TestNewOpenAIRequiresKeyForHostedAPI(t *testing.T) {
	t.Setenv("TRADELAW_TEST_KEY", "")
	_, err := New(context.Background(), config.GeneratorConfig{
		Type:   "openai",
		OpenAI: config.OpenAIGeneratorConfig{BaseURL: "https://api.openai.com/v1", APIKeyEnv: "TRADELAW_TEST_KEY", Model: "gpt-4o-mini"},
	})
	assert.ErrorContains(t, err, "TRADELAW_TEST_KEY")
}

func TestNewOpenAILocalServerWithoutKey(t *testing.T) {
	t.Setenv("TRADELAW_TEST_KEY", "")
	gen, err := New(context.Background(), config.GeneratorConfig{
		Type:   "openai",
		OpenAI: config.OpenAIGeneratorConfig{BaseURL: "http://localhost:11434/v1", APIKeyEnv: "TRADELAW_TEST_KEY", Model: "llama3"},
	})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, gen)
}
