package database

import (
	"context"
	"fmt"

	"github.com/gomemkg/memkg/internal/apptype"
	"github.com/gomemkg/memkg/internal/metrics"
)

// ReadGraph returns the most recently created entities and every relation
// touching that set. A recent-activity snapshot, not a full export.
func (s *Store) ReadGraph(ctx context.Context, limit int) ([]apptype.Entity, []apptype.Relation, error) {
	done := metrics.TimeOp("db_read_graph")
	success := false
	defer func() { done(success) }()

	entities, err := s.GetRecentEntities(ctx, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get recent entities: %w", err)
	}

	relations, err := s.GetRelationsForEntities(ctx, entities)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get relations: %w", err)
	}

	success = true
	return entities, relations, nil
}

// GetEntityWithRelations fetches one entity, every relation where it is
// source or target, and the distinct 1-hop neighbors. Relations are soft
// references, so a neighbor that no longer exists is omitted from the
// neighbor list rather than failing the read.
func (s *Store) GetEntityWithRelations(ctx context.Context, name string) (*apptype.Entity, []apptype.Relation, []apptype.Entity, error) {
	done := metrics.TimeOp("db_get_entity_with_relations")
	success := false
	defer func() { done(success) }()

	entity, err := s.GetEntity(ctx, name)
	if err != nil {
		return nil, nil, nil, err
	}

	relations, err := s.relationsTouching(ctx, []string{name})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get relations for entity %q: %w", name, err)
	}

	neighborSet := make(map[string]struct{})
	for _, relation := range relations {
		if relation.From != name {
			neighborSet[relation.From] = struct{}{}
		}
		if relation.To != name {
			neighborSet[relation.To] = struct{}{}
		}
	}
	neighborNames := make([]string, 0, len(neighborSet))
	for n := range neighborSet {
		neighborNames = append(neighborNames, n)
	}

	// GetEntities drops names with no backing row, which silently omits
	// dangling references.
	neighbors, err := s.GetEntities(ctx, neighborNames)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get neighbors for entity %q: %w", name, err)
	}

	success = true
	return entity, relations, neighbors, nil
}
