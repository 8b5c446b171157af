package database

import "errors"

// Error kinds surfaced by the store. Callers match with errors.Is; every
// returned error wraps one of these (or is an internal storage error wrapped
// with operation context).
var (
	// ErrNotFound reports an operation targeting an entity name or relation
	// triple that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument reports malformed input: empty names or types,
	// empty observation sets, blank queries.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch reports a vector whose length does not equal the
	// configured embedding dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrVectorSearchUnsupported reports a libSQL build without the vector
	// functions required for similarity search.
	ErrVectorSearchUnsupported = errors.New("vector search unsupported by this libSQL build")
)
