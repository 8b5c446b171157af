package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/gomemkg/memkg/internal/apptype"
	"github.com/gomemkg/memkg/internal/metrics"
)

const (
	maxSearchLimit           = 50
	defaultTextSearchLimit   = 10
	defaultVectorSearchLimit = 5
)

// separatorRuns matches the token separators treated as equivalent in
// queries and stored text: whitespace, underscore, hyphen.
var separatorRuns = regexp.MustCompile(`[\s_\-]+`)

// normalizeLikePattern turns a raw query into a LIKE pattern: literal
// wildcards escaped, separator runs collapsed into a single wildcard so
// "web development", "web-development" and "web_development" all match each
// other, and the whole pattern anchored as a substring.
func normalizeLikePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`).Replace(strings.ToLower(query))
	collapsed := separatorRuns.ReplaceAllString(escaped, "%")
	return "%" + collapsed + "%"
}

// clampSearchLimit clamps into [1, maxSearchLimit]; zero selects the default.
func clampSearchLimit(limit, fallback int) int {
	switch {
	case limit == 0:
		return fallback
	case limit < 1:
		return 1
	case limit > maxSearchLimit:
		return maxSearchLimit
	}
	return limit
}

// textSearchQuery ranks by matched field: a name match outranks a type match,
// which outranks an observation-only match; recency breaks ties within a
// rank. GROUP BY deduplicates entities matched through several observations.
const textSearchQuery = `
	SELECT e.name, e.entity_type, e.embedding, e.created_at,
	       CASE
	           WHEN lower(e.name) LIKE ? ESCAPE '\' THEN 0
	           WHEN lower(e.entity_type) LIKE ? ESCAPE '\' THEN 1
	           ELSE 2
	       END AS match_rank
	FROM entities e
	LEFT JOIN observations o ON o.entity_name = e.name
	WHERE lower(e.name) LIKE ? ESCAPE '\'
	   OR lower(e.entity_type) LIKE ? ESCAPE '\'
	   OR lower(o.content) LIKE ? ESCAPE '\'
	GROUP BY e.name
	ORDER BY match_rank ASC, e.created_at DESC, e.rowid DESC
	LIMIT ?
`

// SearchText performs relevance-ranked substring search over entity names,
// types and observation content.
func (s *Store) SearchText(ctx context.Context, query string, limit int) ([]apptype.Entity, error) {
	done := metrics.TimeOp("db_search_text")
	success := false
	defer func() { done(success) }()

	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query cannot be empty", ErrInvalidArgument)
	}
	limit = clampSearchLimit(limit, defaultTextSearchLimit)
	pattern := normalizeLikePattern(query)

	stmt, err := s.getPreparedStmt(ctx, textSearchQuery)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, pattern, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute text search: %w", err)
	}
	defer rows.Close()

	var entities []apptype.Entity
	for rows.Next() {
		var name, entityType string
		var embeddingBytes []byte
		var createdAt any
		var matchRank int
		if err := rows.Scan(&name, &entityType, &embeddingBytes, &createdAt, &matchRank); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		vector, err := s.extractVector(embeddingBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to extract vector for entity %q: %w", name, err)
		}
		entities = append(entities, apptype.Entity{
			Name:       name,
			EntityType: entityType,
			CreatedAt:  timestampString(createdAt),
			Embedding:  vector,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	for i := range entities {
		observations, err := s.getEntityObservations(ctx, entities[i].Name)
		if err != nil {
			return nil, fmt.Errorf("failed to get observations for entity %q: %w", entities[i].Name, err)
		}
		entities[i].Observations = observations
	}

	success = true
	return entities, nil
}

// SearchSimilar performs cosine-distance vector search over entities that
// carry an embedding; entities without one are not considered. Uses the ANN
// index via vector_top_k when the build supports it, demoting to an exact
// scan on a runtime "no such function".
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]apptype.SearchResult, error) {
	done := metrics.TimeOp("db_search_similar")
	success := false
	defer func() { done(success) }()

	if !s.SupportsVectorSearch() {
		return nil, ErrVectorSearchUnsupported
	}
	if limit <= 0 {
		limit = defaultVectorSearchLimit
	}
	vectorString, err := s.vectorToString(embedding)
	if err != nil {
		return nil, fmt.Errorf("invalid query vector: %w", err)
	}

	s.capMu.RLock()
	useTopK := s.caps.vectorTopK
	s.capMu.RUnlock()

	var rows *sql.Rows
	if useTopK {
		const annQuery = `WITH vt AS (
			SELECT id FROM vector_top_k('idx_entities_embedding', vector32(?), ?)
		)
		SELECT e.name, e.entity_type, e.embedding, e.created_at,
		       vector_distance_cos(e.embedding, vector32(?)) AS distance
		FROM vt JOIN entities e ON e.rowid = vt.id
		WHERE e.embedding IS NOT NULL
		ORDER BY distance ASC
		LIMIT ?`
		stmt, perr := s.getPreparedStmt(ctx, annQuery)
		if perr != nil && !isMissingFunctionErr(perr) {
			return nil, perr
		}
		if perr == nil {
			rows, err = stmt.QueryContext(ctx, vectorString, limit, vectorString, limit)
		}
		if perr != nil || (err != nil && isMissingFunctionErr(err)) {
			s.demoteVectorTopK()
			useTopK = false
			err = nil
		} else if err != nil {
			return nil, fmt.Errorf("failed ANN search: %w", err)
		}
	}
	if !useTopK {
		const scanQuery = `SELECT e.name, e.entity_type, e.embedding, e.created_at,
		       vector_distance_cos(e.embedding, vector32(?)) AS distance
		FROM entities e
		WHERE e.embedding IS NOT NULL
		ORDER BY distance ASC
		LIMIT ?`
		stmt, perr := s.getPreparedStmt(ctx, scanQuery)
		if perr != nil {
			return nil, perr
		}
		rows, err = stmt.QueryContext(ctx, vectorString, limit)
	}
	if err != nil {
		if isMissingFunctionErr(err) {
			return nil, ErrVectorSearchUnsupported
		}
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []apptype.SearchResult
	for rows.Next() {
		var name, entityType string
		var embeddingBytes []byte
		var createdAt any
		var distance float64
		if err := rows.Scan(&name, &entityType, &embeddingBytes, &createdAt, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan search result row: %w", err)
		}
		vector, err := s.extractVector(embeddingBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to extract vector for entity %q: %w", name, err)
		}
		results = append(results, apptype.SearchResult{
			Entity: apptype.Entity{
				Name:       name,
				EntityType: entityType,
				CreatedAt:  timestampString(createdAt),
				Embedding:  vector,
			},
			Distance: distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	for i := range results {
		observations, err := s.getEntityObservations(ctx, results[i].Entity.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to get observations for entity %q: %w", results[i].Entity.Name, err)
		}
		results[i].Entity.Observations = observations
	}

	success = true
	return results, nil
}

// SearchNodes performs text or vector search depending on the query shape
// and pairs the matched entities with every relation touching them.
func (s *Store) SearchNodes(ctx context.Context, query interface{}, limit int) ([]apptype.Entity, []apptype.Relation, error) {
	var entities []apptype.Entity

	switch q := query.(type) {
	case string:
		found, err := s.SearchText(ctx, q, limit)
		if err != nil {
			return nil, nil, err
		}
		entities = found
	default:
		vector, ok, err := coerceToFloat32Slice(query)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		if !ok {
			return nil, nil, fmt.Errorf("%w: unsupported query type %T", ErrInvalidArgument, query)
		}
		results, err := s.SearchSimilar(ctx, vector, limit)
		if err != nil {
			return nil, nil, err
		}
		entities = make([]apptype.Entity, len(results))
		for i, result := range results {
			entities[i] = result.Entity
		}
	}

	if len(entities) == 0 {
		return []apptype.Entity{}, []apptype.Relation{}, nil
	}

	relations, err := s.GetRelationsForEntities(ctx, entities)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get relations for search results: %w", err)
	}
	return entities, relations, nil
}
