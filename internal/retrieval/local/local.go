// Package local retrieves passages from the in-process knowledge base.
package local

import (
	"context"

	"tradelaw/internal/domain"
)

// Searcher is the query side of the knowledge base.
type Searcher interface {
	Query(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// Retriever adapts a Searcher to domain.Retriever.
type Retriever struct {
	searcher Searcher
}

func New(searcher Searcher) *Retriever {
	return &Retriever{searcher: searcher}
}

// Retrieve returns passages in relevance order, cited by document path.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) ([]domain.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results, err := r.searcher.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	passages := make([]domain.Passage, 0, len(results))
	for _, res := range results {
		passages = append(passages, domain.NewPassage(res.Chunk.Text, res.Chunk.Source))
	}
	return passages, nil
}
