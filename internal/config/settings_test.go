package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	s, err := FromLookup(lookupFrom(map[string]string{"AUTH_TOKEN": "secret"}))
	require.NoError(t, err)

	assert.Equal(t, ServerListenAddr, s.ListenAddr)
	assert.Equal(t, EmbeddingProviderGoogle, s.EmbeddingProvider)
	assert.Equal(t, GoogleEmbeddingModel, s.EmbeddingModel)
	assert.Equal(t, RetrievalCacheTTL, s.CacheTTL)
	assert.Equal(t, ChunkMaxChars, s.ChunkMaxChars)
	assert.Equal(t, CacheBackendMemory, s.CacheBackend)
	assert.Equal(t, slog.LevelDebug, s.LogLevel)
	assert.False(t, s.IsProd)
}

func TestFromLookup_Overrides(t *testing.T) {
	s, err := FromLookup(lookupFrom(map[string]string{
		"APP_ENV":            "production",
		"NO_AUTH_BYPASS":     "true",
		"EMBEDDING_PROVIDER": "OpenAI",
		"RAG_CACHE_TTL":      "600",
		"RAG_CACHE_BACKEND":  "redis",
		"MATCH_THRESHOLD":    "0.25",
		"LOG_LEVEL":          "warn",
	}))
	require.NoError(t, err)

	assert.True(t, s.IsProd)
	assert.True(t, s.NoAuthBypass)
	assert.Equal(t, EmbeddingProviderOpenAI, s.EmbeddingProvider)
	assert.Equal(t, OpenAIEmbeddingModel, s.EmbeddingModel)
	assert.Equal(t, 600*time.Second, s.CacheTTL)
	assert.Equal(t, CacheBackendRedis, s.CacheBackend)
	assert.InDelta(t, 0.25, s.MatchThreshold, 1e-6)
	assert.Equal(t, slog.LevelWarn, s.LogLevel)
}

func TestFromLookup_Invalid(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"CHUNK_MAX_CHARS":    "zero",
		"EMBEDDING_PROVIDER": "cohere",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHUNK_MAX_CHARS")
	assert.Contains(t, err.Error(), "EMBEDDING_PROVIDER")
	assert.Contains(t, err.Error(), "AUTH_TOKEN")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("AUTH_TOKEN=from-file\nCHUNK_MAX_CHARS=400\n"), 0o600))

	t.Setenv("AUTH_TOKEN", "")
	t.Setenv("CHUNK_MAX_CHARS", "")
	// godotenv does not override variables that are already set, so clear them first
	os.Unsetenv("AUTH_TOKEN")
	os.Unsetenv("CHUNK_MAX_CHARS")

	s, err := Load(filepath.Join(dir, "missing.env"), envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-file", s.AuthToken)
	assert.Equal(t, 400, s.ChunkMaxChars)
}

func TestFromLookup_HTTPEmbeddingNeedsURL(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"AUTH_TOKEN":         "secret",
		"EMBEDDING_PROVIDER": "http",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMBEDDING_URL")

	s, err := FromLookup(lookupFrom(map[string]string{
		"AUTH_TOKEN":         "secret",
		"EMBEDDING_PROVIDER": "http",
		"EMBEDDING_URL":      "http://localhost:8081/embed",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081/embed", s.EmbeddingURL)
}
