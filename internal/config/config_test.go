package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "java", cfg.Project.Language)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "local", cfg.VectorStore.Provider)
	assert.Equal(t, "CodeChunk", cfg.VectorStore.Index)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 4, cfg.Pipeline.RelatedChunks)
	assert.InDelta(t, 0.25, cfg.Pipeline.CycleWarnThreshold, 1e-9)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ai:
  provider: openai
  summary_model: gpt-4o-mini
vector_store:
  provider: weaviate
  url: http://localhost:8080
pipeline:
  workers: 2
  write_comments: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.SummaryModel)
	assert.Equal(t, "weaviate", cfg.VectorStore.Provider)
	assert.Equal(t, "http://localhost:8080", cfg.VectorStore.URL)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.True(t, cfg.Pipeline.WriteComments)

	t.Run("unset fields keep defaults", func(t *testing.T) {
		assert.Equal(t, "java", cfg.Project.Language)
		assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COMPREHEND_API_KEY", "secret")
	t.Setenv("COMPREHEND_AI_PROVIDER", "openai")
	t.Setenv("COMPREHEND_WORKERS", "16")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, 16, cfg.Pipeline.Workers)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
