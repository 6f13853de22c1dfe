package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should load yaml and fill defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
server:
  port: 9000
rag:
  chunk_size: 500
llm:
  model: some-model
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 500, cfg.RAG.ChunkSize)
		assert.Equal(t, DefaultChunkOverlap, cfg.RAG.ChunkOverlap)
		assert.Equal(t, DefaultTopK, cfg.RAG.TopK)
		assert.Equal(t, "some-model", cfg.LLM.Model)
	})

	t.Run("Should fail on a missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("Should take the LLM key from the environment when unset", func(t *testing.T) {
		t.Setenv("OPENROUTER_KEY", "sk-env")
		cfg := &Config{}
		cfg.ApplyDefaults()
		assert.Equal(t, "sk-env", cfg.LLM.Key)
	})
}
