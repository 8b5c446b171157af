package database

import (
	"context"
	"strings"
	"time"
)

// capFlags records which optional libSQL features this build exposes. Text
// operations never depend on them; vector search is layered on top and
// callers feature-detect via SupportsVectorSearch.
type capFlags struct {
	checked     bool
	vectorFuncs bool
	vectorTopK  bool
}

// detectCapabilities probes vector32/vector_distance_cos and vector_top_k
// once at startup. The top-k probe is skipped for in-memory URLs to avoid
// driver quirks; the exact-scan path covers them.
func (s *Store) detectCapabilities(ctx context.Context) {
	s.capMu.RLock()
	caps := s.caps
	s.capMu.RUnlock()
	if caps.checked {
		return
	}

	zero := s.vectorZeroString()

	ctx2, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	var dist float64
	err := s.db.QueryRowContext(ctx2,
		"SELECT vector_distance_cos(vector32(?), vector32(?))", zero, zero).Scan(&dist)
	caps.vectorFuncs = err == nil || !isMissingFunctionErr(err)

	if caps.vectorFuncs && !strings.Contains(s.config.URL, "mode=memory") {
		ctx3, cancel3 := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel3()
		rows, err := s.db.QueryContext(ctx3,
			"SELECT id FROM vector_top_k('idx_entities_embedding', vector32(?), 1) LIMIT 1", zero)
		if rows != nil {
			rows.Close()
		}
		caps.vectorTopK = err == nil
	}

	caps.checked = true
	s.capMu.Lock()
	s.caps = caps
	s.capMu.Unlock()
}

// SupportsVectorSearch reports whether similarity search is available.
func (s *Store) SupportsVectorSearch() bool {
	s.capMu.RLock()
	defer s.capMu.RUnlock()
	return s.caps.vectorFuncs
}

// demoteVectorTopK turns off the ANN path after a runtime "no such function".
func (s *Store) demoteVectorTopK() {
	s.capMu.Lock()
	s.caps.vectorTopK = false
	s.capMu.Unlock()
}

func isMissingFunctionErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such function")
}
