package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"tradelaw/internal/domain"
	"tradelaw/internal/loader"
	"tradelaw/internal/textutil"
)

// IngestReport summarizes an ingestion run.
type IngestReport struct {
	Documents int
	Chunks    int
	Summary   string
}

// KnowledgeBase indexes law documents and answers similarity queries over
// them. It backs the local retriever and the ingest command.
type KnowledgeBase struct {
	chunker             domain.Chunker
	embedder            domain.Embedder
	store               domain.VectorStore
	summarizer          domain.Summarizer
	summaryMaxSentences int
	chunks              []domain.Chunk
}

func NewKnowledgeBase(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, summarizer domain.Summarizer, summaryMaxSentences int) *KnowledgeBase {
	return &KnowledgeBase{
		chunker:             chunker,
		embedder:            embedder,
		store:               store,
		summarizer:          summarizer,
		summaryMaxSentences: summaryMaxSentences,
	}
}

// IngestPaths loads the documents under paths and ingests them.
func (kb *KnowledgeBase) IngestPaths(ctx context.Context, paths []string) (IngestReport, error) {
	docs, err := loader.Load(paths)
	if err != nil {
		return IngestReport{}, err
	}
	return kb.IngestDocuments(ctx, docs)
}

// IngestDocuments replaces the indexed corpus with docs.
func (kb *KnowledgeBase) IngestDocuments(ctx context.Context, docs []domain.Document) (IngestReport, error) {
	if len(docs) == 0 {
		return IngestReport{}, errors.New("no documents to ingest")
	}
	var allChunks []domain.Chunk
	var allTexts []string
	var corpus strings.Builder
	for _, d := range docs {
		chunks, err := kb.chunker.Chunk(d)
		if err != nil {
			return IngestReport{}, fmt.Errorf("chunk %s: %w", d.Path, err)
		}
		for _, ch := range chunks {
			allChunks = append(allChunks, ch)
			allTexts = append(allTexts, ch.Text)
		}
		corpus.WriteString("\n")
		corpus.WriteString(d.Content)
	}
	if len(allChunks) == 0 {
		return IngestReport{}, errors.New("documents produced no chunks")
	}
	if err := kb.embedder.Prepare(allTexts); err != nil {
		return IngestReport{}, err
	}
	vectors := make([][]float64, len(allChunks))
	for i := range allChunks {
		vec, err := kb.embedder.Embed(ctx, allChunks[i].Text)
		if err != nil {
			return IngestReport{}, fmt.Errorf("embed chunk %s: %w", allChunks[i].ChunkID, err)
		}
		vectors[i] = vec
	}
	// remote embedders only learn their dimension from the first vector
	dim := kb.embedder.Dimension()
	if dim == 0 {
		dim = len(vectors[0])
	}
	if err := kb.store.Clear(ctx); err != nil {
		return IngestReport{}, err
	}
	if err := kb.store.Init(ctx, dim); err != nil {
		return IngestReport{}, err
	}
	if err := kb.store.Upsert(ctx, allChunks, vectors); err != nil {
		return IngestReport{}, err
	}
	// keep chunks for the lexical fallback
	kb.chunks = allChunks

	summary, err := kb.summarizer.Summarize(corpus.String(), kb.summaryMaxSentences)
	if err != nil {
		return IngestReport{}, err
	}
	return IngestReport{Documents: len(docs), Chunks: len(allChunks), Summary: summary}, nil
}

// Query returns up to topK chunks for query. When the query has no terms in
// the vocabulary, or the store finds nothing similar, it falls back to term
// overlap over the ingested chunks.
func (kb *KnowledgeBase) Query(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	vec, err := kb.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if isZero(vec) {
		return kb.lexicalSearch(query, topK), nil
	}
	res, err := kb.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	for _, r := range res {
		if r.Score > 1e-9 {
			return res, nil
		}
	}
	return kb.lexicalSearch(query, topK), nil
}

// lexicalSearch ranks chunks by the Ochiai coefficient of their term sets
// against the query. Chunks sharing no terms are dropped.
func (kb *KnowledgeBase) lexicalSearch(query string, topK int) []domain.SearchResult {
	if topK <= 0 {
		topK = 5
	}
	qset := textutil.TermSet(query)
	var out []domain.SearchResult
	for _, ch := range kb.chunks {
		if score := ochiai(qset, textutil.TermSet(ch.Text)); score > 0 {
			out = append(out, domain.SearchResult{Chunk: ch, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// ochiai is |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
