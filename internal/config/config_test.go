package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database path", func(c *Config) { c.Database.Path = "" }},
		{"missing vector host", func(c *Config) { c.VectorStore.Host = "" }},
		{"port out of range", func(c *Config) { c.VectorStore.Port = 70000 }},
		{"zero vector size", func(c *Config) { c.VectorStore.VectorSize = 0 }},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "llamafile" }},
		{"tei without base url", func(c *Config) { c.Embeddings.BaseURL = "" }},
		{"negative chunk size", func(c *Config) { c.Embeddings.ChunkSize = -1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Validate_MockProviderNeedsNoURL(t *testing.T) {
	cfg := Default()
	cfg.Embeddings.Provider = "mock"
	cfg.Embeddings.BaseURL = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memoryd.db", cfg.Database.Path)
	assert.Equal(t, 6334, cfg.VectorStore.Port)
	assert.Equal(t, 10, cfg.Embeddings.ChunkSize)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("database:\n  path: /tmp/graph.db\nvectorstore:\n  port: 7334\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/graph.db", cfg.Database.Path)
	assert.Equal(t, 7334, cfg.VectorStore.Port)
	// Untouched fields keep defaults.
	assert.Equal(t, "localhost", cfg.VectorStore.Host)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: from-file.db\n"), 0o600))

	t.Setenv("MEMORYD_DATABASE_PATH", "from-env.db")
	t.Setenv("MEMORYD_VECTORSTORE_VECTOR_SIZE", "768")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.Path)
	assert.Equal(t, 768, cfg.VectorStore.VectorSize)
}

func TestLoad_InvalidRejected(t *testing.T) {
	t.Setenv("MEMORYD_EMBEDDINGS_PROVIDER", "llamafile")
	_, err := Load("")
	assert.Error(t, err)
}

func TestTransformEnv(t *testing.T) {
	assert.Equal(t, "database.path", transformEnv("MEMORYD_DATABASE_PATH"))
	assert.Equal(t, "vectorstore.vector_size", transformEnv("MEMORYD_VECTORSTORE_VECTOR_SIZE"))
	assert.Equal(t, "embeddings.base_url", transformEnv("MEMORYD_EMBEDDINGS_BASE_URL"))
}
