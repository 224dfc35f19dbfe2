package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"tradelaw/internal/domain"
)

// InvokeModelAPI is the subset of the bedrockruntime client used here.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient invokes an Amazon Nova model through the Bedrock runtime.
type BedrockClient struct {
	api     InvokeModelAPI
	modelID string
}

// NewBedrock loads the default AWS credential chain for region.
func NewBedrock(ctx context.Context, region, modelID string) (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewBedrockWithAPI(bedrockruntime.NewFromConfig(awsCfg), modelID), nil
}

func NewBedrockWithAPI(api InvokeModelAPI, modelID string) *BedrockClient {
	return &BedrockClient{api: api, modelID: modelID}
}

type novaContent struct {
	Text string `json:"text"`
}

type novaMessage struct {
	Role    string        `json:"role"`
	Content []novaContent `json:"content"`
}

type novaInferenceConfig struct {
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	TopP        float32 `json:"topP"`
}

type novaRequest struct {
	Messages        []novaMessage       `json:"messages"`
	InferenceConfig novaInferenceConfig `json:"inferenceConfig"`
}

type novaResponse struct {
	Output struct {
		Message novaMessage `json:"message"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
	Usage      struct {
		InputTokens  int `json:"inputTokens"`
		OutputTokens int `json:"outputTokens"`
	} `json:"usage"`
}

// Generate sends the rendered prompt as one user message and returns the
// text of the first content block.
func (c *BedrockClient) Generate(ctx context.Context, req domain.GenerationRequest) (domain.ModelResponse, error) {
	body, err := json.Marshal(novaRequest{
		Messages: []novaMessage{{Role: "user", Content: []novaContent{{Text: req.Prompt()}}}},
		InferenceConfig: novaInferenceConfig{
			Temperature: req.Sampling.Temperature,
			MaxTokens:   req.Sampling.MaxTokens,
			TopP:        req.Sampling.TopP,
		},
	})
	if err != nil {
		return domain.ModelResponse{}, err
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return domain.ModelResponse{}, fmt.Errorf("invoke %s: %w", c.modelID, err)
	}

	var resp novaResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return domain.ModelResponse{}, fmt.Errorf("decode %s response: %w", c.modelID, err)
	}
	if len(resp.Output.Message.Content) == 0 {
		return domain.ModelResponse{}, errors.New("model response has no content")
	}
	return domain.ModelResponse{
		Text:             resp.Output.Message.Content[0].Text,
		Model:            c.modelID,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	}, nil
}
