package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// AssistantConfig sets the trade route and conversation policy.
type AssistantConfig struct {
	Origin                    string `yaml:"origin"`
	Destination               string `yaml:"destination"`
	RetainHistoryAcrossTopics bool   `yaml:"retain_history_across_topics"`
}

// BedrockRetrieverConfig points at an AWS Bedrock knowledge base.
type BedrockRetrieverConfig struct {
	Region          string `yaml:"region"`
	KnowledgeBaseID string `yaml:"knowledge_base_id"`
}

// RetrieverConfig selects where passages come from.
type RetrieverConfig struct {
	Type    string                 `yaml:"type"`
	Bedrock BedrockRetrieverConfig `yaml:"bedrock"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// KnowledgeConfig describes the local knowledge base built from law documents.
type KnowledgeConfig struct {
	Paths       []string          `yaml:"paths"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
}

// BedrockGeneratorConfig configures InvokeModel against a Bedrock model.
type BedrockGeneratorConfig struct {
	Region  string `yaml:"region"`
	ModelID string `yaml:"model_id"`
}

// OpenAIGeneratorConfig configures an OpenAI-compatible chat endpoint.
type OpenAIGeneratorConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Referrer    string `yaml:"referrer,omitempty"`
	Title       string `yaml:"title,omitempty"`
}

// GeneratorConfig selects the language model backend.
type GeneratorConfig struct {
	Type    string                 `yaml:"type"`
	Bedrock BedrockGeneratorConfig `yaml:"bedrock"`
	OpenAI  OpenAIGeneratorConfig  `yaml:"openai"`
}

// LoggingConfig controls the diagnostic logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TranscriptConfig enables the JSONL transcript when Path is set.
type TranscriptConfig struct {
	Path string `yaml:"path"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Assistant  AssistantConfig  `yaml:"assistant"`
	Retriever  RetrieverConfig  `yaml:"retriever"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Logging    LoggingConfig    `yaml:"logging"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

// envOverrides are applied on top of the YAML file. Empty values leave the
// file setting untouched.
type envOverrides struct {
	Retriever       string `env:"TRADELAW_RETRIEVER"`
	Generator       string `env:"TRADELAW_GENERATOR"`
	Region          string `env:"AWS_REGION"`
	KnowledgeBaseID string `env:"TRADELAW_KNOWLEDGE_BASE_ID"`
	ModelID         string `env:"TRADELAW_MODEL_ID"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	OpenAIModel     string `env:"OPENAI_MODEL"`
	LogLevel        string `env:"TRADELAW_LOG_LEVEL"`
	RetainHistory   string `env:"TRADELAW_RETAIN_HISTORY"`
	Transcript      string `env:"TRADELAW_TRANSCRIPT"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyConfigDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/tradelaw/config.yaml.
// If neither exists, it writes defaults to ~/.config/tradelaw/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, defaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports every missing setting required by the selected backends.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Assistant.Origin == "" || c.Assistant.Destination == "" {
		errs = append(errs, errors.New("assistant.origin and assistant.destination are required"))
	}

	switch c.Retriever.Type {
	case "local":
		if len(c.Knowledge.Paths) == 0 {
			errs = append(errs, errors.New("knowledge.paths is required for the local retriever"))
		}
		if c.Knowledge.Embedder.Type == "openai" && c.Knowledge.Embedder.OpenAI == nil {
			errs = append(errs, errors.New("knowledge.embedder.openai is required for the openai embedder"))
		}
		if c.Knowledge.VectorStore.Type == "qdrant" && c.Knowledge.VectorStore.Qdrant == nil {
			errs = append(errs, errors.New("knowledge.vector_store.qdrant is required for the qdrant store"))
		}
	case "bedrock":
		if c.Retriever.Bedrock.KnowledgeBaseID == "" {
			errs = append(errs, errors.New("retriever.bedrock.knowledge_base_id is required"))
		}
		if c.Retriever.Bedrock.Region == "" {
			errs = append(errs, errors.New("retriever.bedrock.region is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown retriever: %q", c.Retriever.Type))
	}

	switch c.Generator.Type {
	case "bedrock":
		if c.Generator.Bedrock.ModelID == "" {
			errs = append(errs, errors.New("generator.bedrock.model_id is required"))
		}
		if c.Generator.Bedrock.Region == "" {
			errs = append(errs, errors.New("generator.bedrock.region is required"))
		}
	case "openai":
		if c.Generator.OpenAI.Model == "" {
			errs = append(errs, errors.New("generator.openai.model is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown generator: %q", c.Generator.Type))
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown logging format: %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tradelaw", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Assistant: AssistantConfig{
			Origin:                    "Malaysia",
			Destination:               "Singapore",
			RetainHistoryAcrossTopics: true,
		},
		Retriever: RetrieverConfig{
			Type:    "local",
			Bedrock: BedrockRetrieverConfig{Region: "us-east-1"},
		},
		Knowledge: KnowledgeConfig{
			Paths:       []string{"laws"},
			Embedder:    EmbedderConfig{Type: "tfidf"},
			Chunker:     ChunkerConfig{Type: "sentence", SentencesPerChunk: 5, OverlapSentences: 1},
			VectorStore: VectorStoreConfig{Type: "memory"},
			Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 5},
		},
		Generator: GeneratorConfig{
			Type:    "bedrock",
			Bedrock: BedrockGeneratorConfig{Region: "us-east-1", ModelID: "amazon.nova-lite-v1:0"},
			OpenAI: OpenAIGeneratorConfig{
				BaseURL:     "https://api.openai.com/v1",
				APIKeyEnv:   "OPENAI_API_KEY",
				Model:       "gpt-4o-mini",
				TimeoutSecs: 60,
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Knowledge.Chunker.SentencesPerChunk == 0 {
		cfg.Knowledge.Chunker.SentencesPerChunk = 5
	}
	if cfg.Knowledge.Summarizer.MaxSentences == 0 {
		cfg.Knowledge.Summarizer.MaxSentences = 5
	}
	if emb := cfg.Knowledge.Embedder.OpenAI; cfg.Knowledge.Embedder.Type == "openai" && emb != nil {
		if emb.BaseURL == "" {
			emb.BaseURL = "https://api.openai.com/v1"
		}
		if emb.APIKeyEnv == "" {
			emb.APIKeyEnv = "OPENAI_API_KEY"
		}
		if emb.Model == "" {
			emb.Model = "text-embedding-3-small"
		}
		if emb.TimeoutSecs == 0 {
			emb.TimeoutSecs = 30
		}
	}
	if q := cfg.Knowledge.VectorStore.Qdrant; q != nil && q.Collection == "" {
		q.Collection = "tradelaw"
	}
	if cfg.Generator.OpenAI.APIKeyEnv == "" {
		cfg.Generator.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generator.OpenAI.TimeoutSecs == 0 {
		cfg.Generator.OpenAI.TimeoutSecs = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func applyEnv(cfg *AppConfig) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	setIf(&cfg.Retriever.Type, o.Retriever)
	setIf(&cfg.Generator.Type, o.Generator)
	setIf(&cfg.Retriever.Bedrock.Region, o.Region)
	setIf(&cfg.Generator.Bedrock.Region, o.Region)
	setIf(&cfg.Retriever.Bedrock.KnowledgeBaseID, o.KnowledgeBaseID)
	setIf(&cfg.Generator.Bedrock.ModelID, o.ModelID)
	setIf(&cfg.Generator.OpenAI.BaseURL, o.OpenAIBaseURL)
	setIf(&cfg.Generator.OpenAI.Model, o.OpenAIModel)
	setIf(&cfg.Logging.Level, o.LogLevel)
	setIf(&cfg.Transcript.Path, o.Transcript)
	if o.RetainHistory != "" {
		v, err := strconv.ParseBool(o.RetainHistory)
		if err != nil {
			return fmt.Errorf("TRADELAW_RETAIN_HISTORY: %w", err)
		}
		cfg.Assistant.RetainHistoryAcrossTopics = v
	}
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
