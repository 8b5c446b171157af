package memory

import (
	"github.com/gomemkg/memkg/internal/database"
)

// Config exposes a stable wrapper for database configuration in package mode.
// Fields map directly to internal/database.Config.
type Config struct {
	URL           string
	AuthToken     string
	EmbeddingDims int
}

func (c *Config) toInternal() *database.Config {
	return &database.Config{
		URL:           c.URL,
		AuthToken:     c.AuthToken,
		EmbeddingDims: c.EmbeddingDims,
	}
}
