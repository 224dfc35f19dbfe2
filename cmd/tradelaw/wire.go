package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tradelaw/internal/chunker"
	"tradelaw/internal/config"
	"tradelaw/internal/domain"
	"tradelaw/internal/embedding/openai"
	"tradelaw/internal/embedding/tfidf"
	"tradelaw/internal/retrieval/bedrock"
	"tradelaw/internal/retrieval/local"
	"tradelaw/internal/service"
	"tradelaw/internal/summarizer"
	"tradelaw/internal/vectorstore/memory"
	"tradelaw/internal/vectorstore/qdrant"
)

func buildKnowledgeBase(cfg config.KnowledgeConfig) (*service.KnowledgeBase, error) {
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv:  cfg.Embedder.OpenAI.APIKeyEnv,
			Model:      cfg.Embedder.OpenAI.Model,
			Timeout:    time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Embedder.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "sentence", "":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	var st domain.VectorStore
	switch cfg.VectorStore.Type {
	case "memory", "":
		st = memory.NewStorage()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		st = qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	return service.NewKnowledgeBase(ch, emb, st, sum, cfg.Summarizer.MaxSentences), nil
}

// buildRetriever returns the configured retriever. The local retriever
// indexes knowledge.paths before the first question.
func buildRetriever(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (domain.Retriever, error) {
	switch cfg.Retriever.Type {
	case "bedrock":
		return bedrock.New(ctx, bedrock.Config{
			Region:          cfg.Retriever.Bedrock.Region,
			KnowledgeBaseID: cfg.Retriever.Bedrock.KnowledgeBaseID,
		})
	case "local", "":
		kb, err := buildKnowledgeBase(cfg.Knowledge)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		report, err := kb.IngestPaths(ctx, cfg.Knowledge.Paths)
		if err != nil {
			return nil, fmt.Errorf("ingest %v: %w", cfg.Knowledge.Paths, err)
		}
		logger.Info().
			Int("documents", report.Documents).
			Int("chunks", report.Chunks).
			Dur("duration", time.Since(start)).
			Msg("knowledge base ready")
		return local.New(kb), nil
	default:
		return nil, fmt.Errorf("unknown retriever: %s", cfg.Retriever.Type)
	}
}
