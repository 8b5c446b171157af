package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/gomemkg/memkg/internal/apptype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadGraphReturnsMostRecent(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 15; i++ {
		err := store.CreateEntities(ctx, []apptype.Entity{
			{Name: fmt.Sprintf("ent-%02d", i), EntityType: "t", Observations: []string{"o"}},
		})
		require.NoError(t, err)
	}

	entities, relations, err := store.ReadGraph(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entities, 10)
	assert.Empty(t, relations)

	// Most recently created first; the five oldest fall off.
	seen := make(map[string]bool)
	for _, e := range entities {
		seen[e.Name] = true
	}
	for i := 5; i < 15; i++ {
		assert.True(t, seen[fmt.Sprintf("ent-%02d", i)], "expected ent-%02d in snapshot", i)
	}
	assert.Equal(t, "ent-14", entities[0].Name)
}

func TestReadGraphRelationsScopedToSnapshot(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "a", EntityType: "t", Observations: []string{"o"}},
		{Name: "b", EntityType: "t", Observations: []string{"o"}},
	})
	require.NoError(t, err)
	_, err = store.CreateRelations(ctx, []apptype.Relation{
		{From: "a", To: "b", RelationType: "knows"},
		{From: "outsider", To: "stranger", RelationType: "knows"},
	})
	require.NoError(t, err)

	entities, relations, err := store.ReadGraph(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entities, 2)
	// Only relations touching the returned entity set appear.
	require.Len(t, relations, 1)
	assert.Equal(t, "a", relations[0].From)
}

func TestReadGraphEmpty(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	entities, relations, err := store.ReadGraph(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entities)
	assert.Empty(t, relations)
}

func TestGetEntityWithRelations(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "Claude", EntityType: "assistant", Observations: []string{"answers questions"}},
		{Name: "Anthropic", EntityType: "company", Observations: []string{"an AI lab"}},
		{Name: "Go", EntityType: "language", Observations: []string{"compiles fast"}},
	})
	require.NoError(t, err)
	_, err = store.CreateRelations(ctx, []apptype.Relation{
		{From: "Claude", To: "Anthropic", RelationType: "works_at"},
		{From: "Go", To: "Claude", RelationType: "used_by"},
		{From: "Anthropic", To: "Go", RelationType: "uses"},
	})
	require.NoError(t, err)

	entity, relations, neighbors, err := store.GetEntityWithRelations(ctx, "Claude")
	require.NoError(t, err)
	assert.Equal(t, "Claude", entity.Name)
	assert.Equal(t, []string{"answers questions"}, entity.Observations)

	// Both directions count; the Anthropic->Go edge does not touch Claude.
	require.Len(t, relations, 2)

	names := make(map[string]bool)
	for _, n := range neighbors {
		names[n.Name] = true
	}
	assert.Len(t, neighbors, 2)
	assert.True(t, names["Anthropic"])
	assert.True(t, names["Go"])
	assert.False(t, names["Claude"], "the entity itself is not its own neighbor")
}

func TestGetEntityWithRelationsOmitsDanglingNeighbors(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "hub", EntityType: "t", Observations: []string{"o"}},
		{Name: "real", EntityType: "t", Observations: []string{"o"}},
	})
	require.NoError(t, err)

	// Relation endpoints are soft references: "phantom" never existed.
	_, err = store.CreateRelations(ctx, []apptype.Relation{
		{From: "hub", To: "real", RelationType: "knows"},
		{From: "hub", To: "phantom", RelationType: "knows"},
	})
	require.NoError(t, err)

	_, relations, neighbors, err := store.GetEntityWithRelations(ctx, "hub")
	require.NoError(t, err)
	// The dangling relation is still reported.
	assert.Len(t, relations, 2)
	// But the phantom endpoint is omitted from the neighbor list.
	require.Len(t, neighbors, 1)
	assert.Equal(t, "real", neighbors[0].Name)
}

func TestGetEntityWithRelationsNotFound(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	_, _, _, err := store.GetEntityWithRelations(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetEntityWithRelationsIsolatedEntity(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "loner", EntityType: "t", Observations: []string{"o"}},
	})
	require.NoError(t, err)

	entity, relations, neighbors, err := store.GetEntityWithRelations(ctx, "loner")
	require.NoError(t, err)
	assert.Equal(t, "loner", entity.Name)
	assert.Empty(t, relations)
	assert.Empty(t, neighbors)
}
