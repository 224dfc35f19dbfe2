// Package bedrock retrieves passages from an AWS Bedrock knowledge base.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"tradelaw/internal/domain"
)

// RetrieveAPI is the subset of the bedrockagentruntime client used here.
type RetrieveAPI interface {
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// Config configures the knowledge base retriever.
type Config struct {
	Region          string
	KnowledgeBaseID string
}

// Retriever runs vector searches against one knowledge base.
type Retriever struct {
	api             RetrieveAPI
	knowledgeBaseID string
}

// New loads the default AWS credential chain for cfg.Region.
func New(ctx context.Context, cfg Config) (*Retriever, error) {
	if cfg.KnowledgeBaseID == "" {
		return nil, errors.New("bedrock: knowledge base id is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return NewWithAPI(bedrockagentruntime.NewFromConfig(awsCfg), cfg.KnowledgeBaseID), nil
}

// NewWithAPI builds a retriever over an existing client.
func NewWithAPI(api RetrieveAPI, knowledgeBaseID string) *Retriever {
	return &Retriever{api: api, knowledgeBaseID: knowledgeBaseID}
}

// Retrieve returns up to limit passages; passages without an S3 location are
// cited as domain.UnknownSource.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) ([]domain.Passage, error) {
	out, err := r.api.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(r.knowledgeBaseID),
		RetrievalQuery:  &types.KnowledgeBaseQuery{Text: aws.String(query)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(limit)),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock retrieve: %w", err)
	}
	passages := make([]domain.Passage, 0, len(out.RetrievalResults))
	for _, res := range out.RetrievalResults {
		var text, source string
		if res.Content != nil {
			text = aws.ToString(res.Content.Text)
		}
		if res.Location != nil && res.Location.S3Location != nil {
			source = aws.ToString(res.Location.S3Location.Uri)
		}
		passages = append(passages, domain.NewPassage(text, source))
	}
	return passages, nil
}
