package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIKey)
	assert.Equal(t, 7860, cfg.ServerPort)
	assert.Equal(t, "http://localhost:8000", cfg.ChromaURL)
	assert.Equal(t, "chroma_memory", cfg.ChromaNamespace)
	assert.Equal(t, "memory", cfg.ThreadStore)
	assert.Equal(t, 0.6, cfg.ConfidenceLow)
	assert.Equal(t, 0.8, cfg.ConfidenceHigh)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 0.7, cfg.NoContextPenalty)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CHROMA_PERSIST_DIR", "custom_ns")
	t.Setenv("CONFIDENCE_HIGH", "0.9")
	t.Setenv("THREAD_STORE", "sqlite")
	t.Setenv("LLM_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "custom_ns", cfg.ChromaNamespace)
	assert.Equal(t, 0.9, cfg.ConfidenceHigh)
	assert.Equal(t, "sqlite", cfg.ThreadStore)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
}

func TestLoad_InvalidThresholds(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CONFIDENCE_LOW", "0.9")
	t.Setenv("CONFIDENCE_HIGH", "0.5")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_UnknownThreadStore(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("THREAD_STORE", "etcd")

	_, err := Load()
	assert.Error(t, err)
}
