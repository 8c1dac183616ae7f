// Package config provides configuration loading for memoryd.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/memoryd/internal/logging"
)

// Config is the root configuration.
type Config struct {
	Database    DatabaseConfig    `koanf:"database"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	Logging     logging.Config    `koanf:"logging"`
}

// DatabaseConfig configures the relational graph store.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `koanf:"path"`
}

// VectorStoreConfig configures the Qdrant vector index.
type VectorStoreConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string `koanf:"host"`

	// Port is the Qdrant gRPC port (NOT the HTTP REST port).
	Port int `koanf:"port"`

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool `koanf:"use_tls"`

	// VectorSize is the dimensionality of embeddings.
	// MUST match the embedding provider's output dimension.
	VectorSize int `koanf:"vector_size"`
}

// EmbeddingsConfig configures the embedding provider and pipeline.
type EmbeddingsConfig struct {
	// Provider selects the embedding backend: "tei" or "mock".
	// The mock provider is deterministic and explicitly flagged; it must
	// never back a production index.
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// BaseURL is the TEI endpoint (only used for the tei provider).
	BaseURL string `koanf:"base_url"`

	// ChunkSize bounds how many cache misses are embedded per upstream call.
	ChunkSize int `koanf:"chunk_size"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "memoryd.db",
		},
		VectorStore: VectorStoreConfig{
			Host:       "localhost",
			Port:       6334,
			VectorSize: 384,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "tei",
			Model:     "BAAI/bge-small-en-v1.5",
			BaseURL:   "http://localhost:8080",
			ChunkSize: 10,
		},
		Logging: *logging.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.VectorStore.Host == "" {
		return fmt.Errorf("vectorstore.host is required")
	}
	if c.VectorStore.Port <= 0 || c.VectorStore.Port > 65535 {
		return fmt.Errorf("vectorstore.port %d out of range", c.VectorStore.Port)
	}
	if c.VectorStore.VectorSize <= 0 {
		return fmt.Errorf("vectorstore.vector_size must be positive")
	}
	switch c.Embeddings.Provider {
	case "tei":
		if c.Embeddings.BaseURL == "" {
			return fmt.Errorf("embeddings.base_url is required for the tei provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown embeddings.provider %q (want tei or mock)", c.Embeddings.Provider)
	}
	if c.Embeddings.ChunkSize < 0 {
		return fmt.Errorf("embeddings.chunk_size must not be negative")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
