package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"tradelaw/internal/domain"
)

// OpenAIClient generates answers through an OpenAI-compatible chat endpoint
// such as OpenAI, OpenRouter or a local Ollama server.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// OpenAIConfig configures NewOpenAI.
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Referrer string
	Title    string
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

func NewOpenAI(cfg OpenAIConfig) *OpenAIClient {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	var rt http.RoundTripper = http.DefaultTransport
	// OpenRouter attribution headers
	if cfg.Referrer != "" || cfg.Title != "" {
		h := http.Header{}
		if cfg.Referrer != "" {
			h.Set("HTTP-Referer", cfg.Referrer)
		}
		if cfg.Title != "" {
			h.Set("X-Title", cfg.Title)
		}
		rt = headerTransport{rt: rt, headers: h}
	}
	config.HTTPClient = &http.Client{Transport: rt, Timeout: cfg.Timeout}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

// Generate sends the rendered prompt as a single user message.
func (c *OpenAIClient) Generate(ctx context.Context, req domain.GenerationRequest) (domain.ModelResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt()},
		},
		Temperature: req.Sampling.Temperature,
		MaxTokens:   req.Sampling.MaxTokens,
		TopP:        req.Sampling.TopP,
	})
	if err != nil {
		return domain.ModelResponse{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.ModelResponse{}, errors.New("chat completion returned no choices")
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return domain.ModelResponse{
		Text:             resp.Choices[0].Message.Content,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
