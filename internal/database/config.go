package database

import (
	"os"
	"strconv"
)

// DefaultEmbeddingDims matches the output size of common embedding providers.
const DefaultEmbeddingDims = 1536

// Config holds the store configuration.
type Config struct {
	// URL is a libSQL database URL: "file:" paths for local stores,
	// "libsql://" for remote ones.
	URL string
	// AuthToken authenticates remote databases. Ignored for file URLs.
	AuthToken string
	// EmbeddingDims is the fixed dimensionality of stored vectors.
	EmbeddingDims int
}

// NewConfig creates a Config from environment variables.
func NewConfig() *Config {
	url := os.Getenv("LIBSQL_URL")
	if url == "" {
		url = "file:./memkg.db"
	}

	dims := DefaultEmbeddingDims
	if v := os.Getenv("EMBEDDING_DIMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dims = n
		}
	}

	return &Config{
		URL:           url,
		AuthToken:     os.Getenv("LIBSQL_AUTH_TOKEN"),
		EmbeddingDims: dims,
	}
}
