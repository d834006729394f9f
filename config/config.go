package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when OPENAI_API_KEY is not set.
// The pipeline must fail fast at startup rather than on the first question.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// Config holds all runtime configuration. It is constructed once at startup
// and passed explicitly into the pipeline; there is no process-wide singleton.
type Config struct {
	// OpenAIKey authenticates both generation and embedding calls
	OpenAIKey string

	// ServerPort is the HTTP listen port
	ServerPort int

	// ChromaURL is the address of the Chroma server
	ChromaURL string

	// ChromaNamespace isolates this deployment's collections inside Chroma.
	// Read from CHROMA_PERSIST_DIR for parity with earlier deployments where
	// the value named an embedded persistence directory.
	ChromaNamespace string

	// MemoryDBPath is the SQLite file holding the long-term decision log
	MemoryDBPath string

	// ThreadStore selects the thread persistence backend:
	// "memory", "sqlite", "redis" or "postgres"
	ThreadStore string

	// ThreadDBPath is the SQLite file for the sqlite thread store
	ThreadDBPath string

	// RedisAddr is the address for the redis thread store
	RedisAddr string

	// PostgresURL is the connection string for the postgres thread store
	PostgresURL string

	// Model is the chat model used for planning, analysis and decisions
	Model string

	// EmbeddingModel is the model used to embed documents and queries
	EmbeddingModel string

	// LLMTimeout bounds each individual generation call
	LLMTimeout time.Duration

	// ConfidenceLow is the retry threshold: below it the pipeline retries
	// while attempts remain
	ConfidenceLow float64

	// ConfidenceHigh is the inclusive threshold for a high-confidence outcome
	ConfidenceHigh float64

	// MaxAttempts bounds the number of decision cycles per question
	MaxAttempts int

	// NoContextPenalty is multiplied into the confidence when no
	// authoritative context is available. The exact weighting is policy,
	// not law; tune per deployment.
	NoContextPenalty float64
}

// Load reads configuration from the environment, loading a .env file first
// if present. It returns ErrMissingAPIKey when no credential is configured.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		ServerPort:       envInt("SERVER_PORT", 7860),
		ChromaURL:        envStr("CHROMA_URL", "http://localhost:8000"),
		ChromaNamespace:  envStr("CHROMA_PERSIST_DIR", "chroma_memory"),
		MemoryDBPath:     envStr("MEMORY_DB_PATH", "long_term_memory.db"),
		ThreadStore:      envStr("THREAD_STORE", "memory"),
		ThreadDBPath:     envStr("THREAD_DB_PATH", "threads.db"),
		RedisAddr:        envStr("REDIS_ADDR", "localhost:6379"),
		PostgresURL:      os.Getenv("POSTGRES_URL"),
		Model:            envStr("LLM_MODEL", "gpt-4o-mini"),
		EmbeddingModel:   envStr("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		LLMTimeout:       envDuration("LLM_TIMEOUT", 60*time.Second),
		ConfidenceLow:    envFloat("CONFIDENCE_LOW", 0.6),
		ConfidenceHigh:   envFloat("CONFIDENCE_HIGH", 0.8),
		MaxAttempts:      envInt("MAX_ATTEMPTS", 3),
		NoContextPenalty: envFloat("NO_CONTEXT_PENALTY", 0.7),
	}

	if cfg.OpenAIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.ConfidenceLow > cfg.ConfidenceHigh {
		return nil, fmt.Errorf("CONFIDENCE_LOW (%v) must not exceed CONFIDENCE_HIGH (%v)",
			cfg.ConfidenceLow, cfg.ConfidenceHigh)
	}
	switch cfg.ThreadStore {
	case "memory", "sqlite", "redis", "postgres":
	default:
		return nil, fmt.Errorf("unknown THREAD_STORE backend: %q", cfg.ThreadStore)
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
