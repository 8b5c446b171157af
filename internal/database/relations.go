package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/gomemkg/memkg/internal/apptype"
	"github.com/gomemkg/memkg/internal/metrics"
)

// CreateRelations inserts relation triples inside one transaction and returns
// the number actually created. A triple identical to a stored one is silently
// absorbed via INSERT OR IGNORE against the unique index; duplicates are
// never an error. Endpoints are soft references and are not required to name
// existing entities.
func (s *Store) CreateRelations(ctx context.Context, relations []apptype.Relation) (int64, error) {
	done := metrics.TimeOp("db_create_relations")
	success := false
	defer func() { done(success) }()

	if len(relations) == 0 {
		success = true
		return 0, nil
	}

	for _, relation := range relations {
		if strings.TrimSpace(relation.From) == "" || strings.TrimSpace(relation.To) == "" ||
			strings.TrimSpace(relation.RelationType) == "" {
			return 0, fmt.Errorf("%w: relation fields cannot be empty", ErrInvalidArgument)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO relations (source, target, relation_type) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var created int64
	for _, relation := range relations {
		result, err := stmt.ExecContext(ctx, relation.From, relation.To, relation.RelationType)
		if err != nil {
			return 0, fmt.Errorf("failed to insert relation (%s -> %s): %w", relation.From, relation.To, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		created += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit relation batch: %w", err)
	}
	success = true
	return created, nil
}

// DeleteRelation removes the exact (source, target, type) triple.
func (s *Store) DeleteRelation(ctx context.Context, source, target, relationType string) error {
	done := metrics.TimeOp("db_delete_relation")
	success := false
	defer func() { done(success) }()

	if source == "" || target == "" || relationType == "" {
		return fmt.Errorf("%w: relation parameters cannot be empty", ErrInvalidArgument)
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM relations WHERE source = ? AND target = ? AND relation_type = ?",
		source, target, relationType)
	if err != nil {
		return fmt.Errorf("failed to delete relation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("relation %s -> %s (%s): %w", source, target, relationType, ErrNotFound)
	}

	success = true
	return nil
}

// GetRelationsForEntities returns every relation whose source or target is in
// the given entity set.
func (s *Store) GetRelationsForEntities(ctx context.Context, entities []apptype.Entity) ([]apptype.Relation, error) {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	return s.relationsTouching(ctx, names)
}

// relationsTouching returns every relation where source or target is in the
// given name set.
func (s *Store) relationsTouching(ctx context.Context, names []string) ([]apptype.Relation, error) {
	if len(names) == 0 {
		return []apptype.Relation{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	query := fmt.Sprintf(
		"SELECT source, target, relation_type FROM relations WHERE source IN (%s) OR target IN (%s)",
		placeholders, placeholders)

	args := make([]interface{}, len(names)*2)
	for i, name := range names {
		args[i] = name
		args[i+len(names)] = name
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	relations := []apptype.Relation{}
	for rows.Next() {
		var source, target, relationType string
		if err := rows.Scan(&source, &target, &relationType); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		relations = append(relations, apptype.Relation{
			From:         source,
			To:           target,
			RelationType: relationType,
		})
	}
	return relations, rows.Err()
}
