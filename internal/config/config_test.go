package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("EMBED_PROVIDER", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 768, cfg.EmbedDim)
	assert.Equal(t, "ollama", cfg.EmbedProvider)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, "mistral", cfg.OllamaModel)
	assert.Equal(t, 60*time.Second, cfg.GenerateTimeout)
}

func TestLoadGeminiKeySwitchesProvider(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("EMBED_PROVIDER", "")

	cfg := Load()
	assert.Equal(t, "gemini", cfg.EmbedProvider)
	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
}

func TestLoadGoogleKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "other-key")

	cfg := Load()
	assert.Equal(t, "other-key", cfg.GeminiAPIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("EMBED_DIM", "384")
	t.Setenv("GENERATE_TIMEOUT", "30s")

	cfg := Load()
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 384, cfg.EmbedDim)
	assert.Equal(t, 30*time.Second, cfg.GenerateTimeout)
}

func TestLoadIgnoresInvalidInt(t *testing.T) {
	t.Setenv("EMBED_DIM", "not-a-number")

	cfg := Load()
	assert.Equal(t, 768, cfg.EmbedDim)
}
