// Package config holds configuration loading for Clark.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies an LLM or embedding backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// Generation model
	LLMProvider Provider `yaml:"llm_provider"`
	LLMModel    string   `yaml:"llm_model"`
	// Contextualizer model used for chunk enrichment and query rewriting.
	// Usually a cheaper/faster model than LLMModel. Empty means reuse LLMModel.
	ContextualizerModel string `yaml:"contextualizer_model"`

	// Embeddings
	EmbedProvider  Provider `yaml:"embed_provider"`
	EmbedModel     string   `yaml:"embed_model"`
	EmbedDimension int      `yaml:"embed_dimension"`

	// Provider endpoints and credentials
	OllamaHost      string `yaml:"ollama_host"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	BedrockRegion   string `yaml:"bedrock_region"`

	// Cross-encoder reranker endpoint (TEI-style /rerank API).
	RerankURL   string `yaml:"rerank_url"`
	RerankModel string `yaml:"rerank_model"`
	RerankTopN  int    `yaml:"rerank_top_n"`

	// Retrieval pipeline
	ChunkSize        int `yaml:"chunk_size"`
	ChunkOverlap     int `yaml:"chunk_overlap"`
	TopKRetrieval    int `yaml:"top_k_retrieval"`
	ContextThreshold int `yaml:"context_threshold"` // chars; docs above skip enrichment

	// Enrichment throttling
	EnrichDelay   time.Duration `yaml:"enrich_delay"`
	EnrichRetries int           `yaml:"enrich_retries"`

	// Server
	ServerPort string `yaml:"server_port"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables, applying defaults
// that match the reference deployment.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "clark"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "rag"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:         Provider(getEnv("CLARK_LLM_PROVIDER", string(ProviderOllama))),
		LLMModel:            getEnv("CLARK_LLM_MODEL", "llama3.3:70b"),
		ContextualizerModel: getEnv("CLARK_CONTEXTUALIZER_MODEL", ""),

		EmbedProvider:  Provider(getEnv("CLARK_EMBED_PROVIDER", string(ProviderOllama))),
		EmbedModel:     getEnv("CLARK_EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getEnvInt("CLARK_EMBED_DIMENSION", 384),

		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		BedrockRegion:   getEnv("CLARK_BEDROCK_REGION", ""),

		RerankURL:   getEnv("CLARK_RERANK_URL", ""),
		RerankModel: getEnv("CLARK_RERANK_MODEL", "BAAI/bge-reranker-base"),
		RerankTopN:  getEnvInt("CLARK_RERANK_TOP_N", 5),

		ChunkSize:        getEnvInt("CLARK_CHUNK_SIZE", 800),
		ChunkOverlap:     getEnvInt("CLARK_CHUNK_OVERLAP", 150),
		TopKRetrieval:    getEnvInt("CLARK_TOP_K", 15),
		ContextThreshold: getEnvInt("CLARK_CONTEXT_THRESHOLD", 30000),

		EnrichDelay:   getEnvDuration("CLARK_ENRICH_DELAY", 1500*time.Millisecond),
		EnrichRetries: getEnvInt("CLARK_ENRICH_RETRIES", 3),

		ServerPort: getEnv("CLARK_SERVER_PORT", "8080"),

		LogFile:  getEnv("CLARK_LOG_FILE", "/tmp/clark.log"),
		LogLevel: parseLogLevel(getEnv("CLARK_LOG_LEVEL", "INFO")),
	}
}

// LoadWithFile loads env config, then overlays values from a YAML config
// file when it exists. Deployments ship a clark.yaml next to the binary;
// a missing file is not an error.
func LoadWithFile(path string) (Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
