package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gomemkg/memkg/internal/apptype"
	"github.com/gomemkg/memkg/internal/metrics"
)

const entityColumns = "name, entity_type, embedding, created_at"

// validateEntities checks the whole batch before any write so a bad item
// fails the batch up front instead of mid-transaction.
func (s *Store) validateEntities(entities []apptype.Entity) error {
	for _, entity := range entities {
		if strings.TrimSpace(entity.Name) == "" {
			return fmt.Errorf("%w: entity name must be a non-empty string", ErrInvalidArgument)
		}
		if strings.TrimSpace(entity.EntityType) == "" {
			return fmt.Errorf("%w: entity %q must have a non-empty type", ErrInvalidArgument, entity.Name)
		}
		if len(entity.Observations) == 0 {
			return fmt.Errorf("%w: entity %q must have at least one observation", ErrInvalidArgument, entity.Name)
		}
		for _, observation := range entity.Observations {
			if strings.TrimSpace(observation) == "" {
				return fmt.Errorf("%w: entity %q has an empty observation", ErrInvalidArgument, entity.Name)
			}
		}
		if len(entity.Embedding) > 0 && len(entity.Embedding) != s.config.EmbeddingDims {
			return fmt.Errorf("%w: entity %q embedding has %d dimensions, expected %d",
				ErrDimensionMismatch, entity.Name, len(entity.Embedding), s.config.EmbeddingDims)
		}
	}
	return nil
}

// CreateEntities creates or updates entities with their observations inside
// one transaction: either the whole batch lands or none of it does.
//
// An upsert replaces the observation set wholesale and updates the type in
// place; created_at is assigned on first insert and never changes. A supplied
// embedding replaces any prior one; an absent embedding leaves the stored
// vector untouched.
func (s *Store) CreateEntities(ctx context.Context, entities []apptype.Entity) error {
	done := metrics.TimeOp("db_create_entities")
	success := false
	defer func() { done(success) }()

	if err := s.validateEntities(entities); err != nil {
		return err
	}
	if len(entities) == 0 {
		success = true
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entity := range entities {
		if err := s.upsertEntityTx(ctx, tx, entity); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entity batch: %w", err)
	}
	success = true
	return nil
}

func (s *Store) upsertEntityTx(ctx context.Context, tx *sql.Tx, entity apptype.Entity) error {
	var result sql.Result
	var err error
	if len(entity.Embedding) > 0 {
		vectorString, vErr := s.vectorToString(entity.Embedding)
		if vErr != nil {
			return fmt.Errorf("entity %q: %w", entity.Name, vErr)
		}
		result, err = tx.ExecContext(ctx,
			"UPDATE entities SET entity_type = ?, embedding = vector32(?) WHERE name = ?",
			entity.EntityType, vectorString, entity.Name)
		if err == nil {
			if affected, raErr := result.RowsAffected(); raErr != nil {
				err = raErr
			} else if affected == 0 {
				_, err = tx.ExecContext(ctx,
					"INSERT INTO entities (name, entity_type, embedding) VALUES (?, ?, vector32(?))",
					entity.Name, entity.EntityType, vectorString)
			}
		}
	} else {
		result, err = tx.ExecContext(ctx,
			"UPDATE entities SET entity_type = ? WHERE name = ?",
			entity.EntityType, entity.Name)
		if err == nil {
			if affected, raErr := result.RowsAffected(); raErr != nil {
				err = raErr
			} else if affected == 0 {
				_, err = tx.ExecContext(ctx,
					"INSERT INTO entities (name, entity_type) VALUES (?, ?)",
					entity.Name, entity.EntityType)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to upsert entity %q: %w", entity.Name, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM observations WHERE entity_name = ?", entity.Name); err != nil {
		return fmt.Errorf("failed to delete old observations for entity %q: %w", entity.Name, err)
	}
	for _, observation := range entity.Observations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO observations (entity_name, content) VALUES (?, ?)",
			entity.Name, observation); err != nil {
			return fmt.Errorf("failed to insert observation for entity %q: %w", entity.Name, err)
		}
	}
	return nil
}

// GetEntity retrieves a single entity by name.
func (s *Store) GetEntity(ctx context.Context, name string) (*apptype.Entity, error) {
	done := metrics.TimeOp("db_get_entity")
	success := false
	defer func() { done(success) }()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE name = ?", name)

	var entityName, entityType string
	var embeddingBytes []byte
	var createdAt any
	if err := row.Scan(&entityName, &entityType, &embeddingBytes, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("entity %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan entity %q: %w", name, err)
	}

	observations, err := s.getEntityObservations(ctx, entityName)
	if err != nil {
		return nil, fmt.Errorf("failed to get observations for entity %q: %w", entityName, err)
	}
	vector, err := s.extractVector(embeddingBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to extract vector for entity %q: %w", entityName, err)
	}

	success = true
	return &apptype.Entity{
		Name:         entityName,
		EntityType:   entityType,
		Observations: observations,
		CreatedAt:    timestampString(createdAt),
		Embedding:    vector,
	}, nil
}

// GetEntities retrieves entities by name, most recent first. Names with no
// matching row are silently absent from the result; relations hold soft
// references and read paths tolerate the dangling ones.
func (s *Store) GetEntities(ctx context.Context, names []string) ([]apptype.Entity, error) {
	if len(names) == 0 {
		return []apptype.Entity{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	query := fmt.Sprintf(
		"SELECT %s FROM entities WHERE name IN (%s) ORDER BY created_at DESC, rowid DESC",
		entityColumns, placeholders)

	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	return s.collectEntities(ctx, rows)
}

// GetRecentEntities retrieves the most recently created entities.
func (s *Store) GetRecentEntities(ctx context.Context, limit int) ([]apptype.Entity, error) {
	done := metrics.TimeOp("db_get_recent_entities")
	success := false
	defer func() { done(success) }()

	if limit <= 0 {
		limit = 10
	}

	stmt, err := s.getPreparedStmt(ctx,
		"SELECT "+entityColumns+" FROM entities ORDER BY created_at DESC, rowid DESC LIMIT ?")
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent entities: %w", err)
	}
	defer rows.Close()

	entities, err := s.collectEntities(ctx, rows)
	if err != nil {
		return nil, err
	}
	success = true
	return entities, nil
}

// DeleteEntity deletes an entity together with its observations, embedding
// and every relation naming it, atomically.
func (s *Store) DeleteEntity(ctx context.Context, name string) error {
	done := metrics.TimeOp("db_delete_entity")
	success := false
	defer func() { done(success) }()

	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: entity name cannot be empty", ErrInvalidArgument)
	}

	var existing string
	if err := s.db.QueryRowContext(ctx, "SELECT name FROM entities WHERE name = ?", name).Scan(&existing); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("entity %q: %w", name, ErrNotFound)
		}
		return fmt.Errorf("failed to check entity existence: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM observations WHERE entity_name = ?", name); err != nil {
		return fmt.Errorf("failed to delete observations for %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM relations WHERE source = ? OR target = ?", name, name); err != nil {
		return fmt.Errorf("failed to delete relations for %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete entity %q: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entity delete: %w", err)
	}
	success = true
	return nil
}

// getEntityObservations retrieves all observations for an entity.
func (s *Store) getEntityObservations(ctx context.Context, entityName string) ([]string, error) {
	stmt, err := s.getPreparedStmt(ctx, "SELECT content FROM observations WHERE entity_name = ? ORDER BY id")
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, entityName)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var observations []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, content)
	}
	return observations, rows.Err()
}

// collectEntities materializes full entities from rows shaped like
// entityColumns, preserving row order.
func (s *Store) collectEntities(ctx context.Context, rows *sql.Rows) ([]apptype.Entity, error) {
	var entities []apptype.Entity
	for rows.Next() {
		var name, entityType string
		var embeddingBytes []byte
		var createdAt any
		if err := rows.Scan(&name, &entityType, &embeddingBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan entity row: %w", err)
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
		return nil, fmt.Errorf("error iterating entity rows: %w", err)
	}

	// Observations fetched after the cursor is drained: the shared
	// connection cannot serve a second query mid-iteration.
	for i := range entities {
		observations, err := s.getEntityObservations(ctx, entities[i].Name)
		if err != nil {
			return nil, fmt.Errorf("failed to get observations for entity %q: %w", entities[i].Name, err)
		}
		entities[i].Observations = observations
	}
	return entities, nil
}

// timestampString normalizes the driver's representation of created_at.
func timestampString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}
