// Package memory provides a library-first API for the knowledge graph
// without MCP transport.
package memory

import (
	"context"

	"github.com/gomemkg/memkg/internal/apptype"
	"github.com/gomemkg/memkg/internal/database"
)

// Service wraps the storage layer behind a stable embeddable API.
type Service struct {
	store *database.Store
}

// NewService constructs a Service with the provided config.
func NewService(cfg *Config) (*Service, error) {
	store, err := database.NewStore(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return &Service{store: store}, nil
}

// Close releases resources.
func (s *Service) Close() error { return s.store.Close() }

// CreateEntities inserts or updates entities as one atomic batch.
func (s *Service) CreateEntities(ctx context.Context, ents []apptype.Entity) error {
	return s.store.CreateEntities(ctx, ents)
}

// CreateRelations inserts relations, absorbing duplicates. Returns the number
// of relations actually created.
func (s *Service) CreateRelations(ctx context.Context, rels []apptype.Relation) (int64, error) {
	return s.store.CreateRelations(ctx, rels)
}

// SearchText performs ranked text search and returns matches with relations.
func (s *Service) SearchText(ctx context.Context, query string, limit int) ([]apptype.Entity, []apptype.Relation, error) {
	return s.store.SearchNodes(ctx, query, limit)
}

// SearchVector performs cosine-distance similarity search.
func (s *Service) SearchVector(ctx context.Context, vector []float32, limit int) ([]apptype.Entity, []apptype.Relation, error) {
	return s.store.SearchNodes(ctx, vector, limit)
}

// ReadGraph returns recent entities and their relations.
func (s *Service) ReadGraph(ctx context.Context, limit int) ([]apptype.Entity, []apptype.Relation, error) {
	return s.store.ReadGraph(ctx, limit)
}

// GetEntityWithRelations fetches one entity with its 1-hop neighborhood.
func (s *Service) GetEntityWithRelations(ctx context.Context, name string) (*apptype.Entity, []apptype.Relation, []apptype.Entity, error) {
	return s.store.GetEntityWithRelations(ctx, name)
}

// DeleteEntity removes an entity and cascades to its observations and relations.
func (s *Service) DeleteEntity(ctx context.Context, name string) error {
	return s.store.DeleteEntity(ctx, name)
}

// DeleteRelation removes one relation identified by its exact triple.
func (s *Service) DeleteRelation(ctx context.Context, source, target, relationType string) error {
	return s.store.DeleteRelation(ctx, source, target, relationType)
}

// SupportsVectorSearch reports whether the backing build exposes the
// vector functions needed for similarity search.
func (s *Service) SupportsVectorSearch() bool {
	return s.store.SupportsVectorSearch()
}
