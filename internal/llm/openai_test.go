package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradelaw/internal/domain"
)

func sampleRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		SystemInstructions: "Be precise.",
		CurrentQuestion:    "Can I export durian?",
		ContextBlock:       "[Source: my.pdf]\nDurian needs a permit.",
		Sampling:           domain.DefaultSampling,
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		TopP        float64 `json:"top_p"`
	}
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini-2024",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Which product?"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 4, "total_tokens": 124}
		}`))
	}))
	defer srv.Close()

	client := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini", Referrer: "https://example.org", Title: "tradelaw"})
	req := sampleRequest()
	resp, err := client.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, req.Prompt(), got.Messages[0].Content)
	assert.InDelta(t, 0.2, got.Temperature, 1e-6)
	assert.Equal(t, 1200, got.MaxTokens)
	assert.InDelta(t, 0.9, got.TopP, 1e-6)
	assert.Equal(t, "Bearer sk-test", headers.Get("Authorization"))
	assert.Equal(t, "https://example.org", headers.Get("HTTP-Referer"))
	assert.Equal(t, "tradelaw", headers.Get("X-Title"))

	assert.Equal(t, domain.ModelResponse{
		Text:             "Which product?",
		Model:            "gpt-4o-mini-2024",
		PromptTokens:     120,
		CompletionTokens: 4,
	}, resp)
}

func TestOpenAIGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, Model: "m"}).Generate(context.Background(), sampleRequest())
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenAIGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, Model: "m"}).Generate(context.Background(), sampleRequest())
	assert.ErrorContains(t, err, "failed to create chat completion")
}
