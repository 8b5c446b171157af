package database

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/gomemkg/memkg/internal/apptype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTextMatchesAllFields(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "golang-project", EntityType: "project", Observations: []string{"a systems language"}},
		{Name: "rust-project", EntityType: "golang-adjacent", Observations: []string{"another language"}},
		{Name: "notes", EntityType: "document", Observations: []string{"thoughts on golang concurrency"}},
		{Name: "unrelated", EntityType: "misc", Observations: []string{"nothing here"}},
	})
	require.NoError(t, err)

	entities, err := store.SearchText(ctx, "golang", 0)
	require.NoError(t, err)
	require.Len(t, entities, 3)
	// Name match outranks type match outranks observation match.
	assert.Equal(t, "golang-project", entities[0].Name)
	assert.Equal(t, "rust-project", entities[1].Name)
	assert.Equal(t, "notes", entities[2].Name)
}

func TestSearchTextCaseInsensitive(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "Claude", EntityType: "Assistant", Observations: []string{"Works at Anthropic"}},
	})
	require.NoError(t, err)

	for _, query := range []string{"claude", "CLAUDE", "Claude"} {
		entities, err := store.SearchText(ctx, query, 0)
		require.NoError(t, err)
		require.Len(t, entities, 1, "query %q", query)
		assert.Equal(t, "Claude", entities[0].Name)
	}
}

func TestSearchTextSeparatorEquivalence(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "web-development", EntityType: "topic", Observations: []string{"frontend and backend"}},
		{Name: "web_development_notes", EntityType: "document", Observations: []string{"misc"}},
		{Name: "guide", EntityType: "document", Observations: []string{"intro to web development"}},
	})
	require.NoError(t, err)

	// Hyphen, underscore and whitespace separators all match each other.
	for _, query := range []string{"web development", "web-development", "web_development", "web   development"} {
		entities, err := store.SearchText(ctx, query, 0)
		require.NoError(t, err)
		assert.Len(t, entities, 3, "query %q", query)
	}
}

func TestSearchTextDeduplicatesObservationMatches(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "ent", EntityType: "t", Observations: []string{"likes coffee", "drinks coffee daily", "coffee snob"}},
	})
	require.NoError(t, err)

	entities, err := store.SearchText(ctx, "coffee", 0)
	require.NoError(t, err)
	// One entity, regardless of how many observations matched.
	require.Len(t, entities, 1)
	assert.Len(t, entities[0].Observations, 3)
}

func TestSearchTextEmptyQuery(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := store.SearchText(context.Background(), query, 0)
		require.Error(t, err, "query %q", query)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestSearchTextLimitClamping(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	entities := make([]apptype.Entity, 55)
	for i := range entities {
		entities[i] = apptype.Entity{
			Name:         fmt.Sprintf("item-%02d", i),
			EntityType:   "thing",
			Observations: []string{"an item"},
		}
	}
	require.NoError(t, store.CreateEntities(ctx, entities))

	// Oversized limits are capped at 50.
	found, err := store.SearchText(ctx, "item", 1000)
	require.NoError(t, err)
	assert.Len(t, found, 50)

	// Zero selects the default of 10.
	found, err = store.SearchText(ctx, "item", 0)
	require.NoError(t, err)
	assert.Len(t, found, 10)

	// Negative limits are raised to 1.
	found, err = store.SearchText(ctx, "item", -7)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestSearchTextNoMatches(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreateEntities(ctx, []apptype.Entity{
		{Name: "ent", EntityType: "t", Observations: []string{"o"}},
	}))

	entities, err := store.SearchText(ctx, "zzz-no-such-thing", 0)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestSearchNodesReturnsRelations(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "alpha", EntityType: "t", Observations: []string{"o"}},
		{Name: "beta", EntityType: "t", Observations: []string{"o"}},
	})
	require.NoError(t, err)
	_, err = store.CreateRelations(ctx, []apptype.Relation{
		{From: "alpha", To: "beta", RelationType: "linked"},
	})
	require.NoError(t, err)

	entities, relations, err := store.SearchNodes(ctx, "alpha", 0)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	require.Len(t, relations, 1)
	assert.Equal(t, "alpha", relations[0].From)
	assert.Equal(t, "beta", relations[0].To)
}

func TestSearchNodesRejectsUnsupportedQuery(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	_, _, err := store.SearchNodes(context.Background(), 42, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func requireVectorSearch(t *testing.T, store *Store) {
	t.Helper()
	if !store.SupportsVectorSearch() {
		t.Skip("libsql build does not expose vector functions")
	}
}

func TestSearchSimilarOrdering(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	requireVectorSearch(t, store)

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "exact", EntityType: "t", Observations: []string{"o"}, Embedding: []float32{1, 0, 0, 0}},
		{Name: "close", EntityType: "t", Observations: []string{"o"}, Embedding: []float32{0.9, 0.1, 0, 0}},
		{Name: "far", EntityType: "t", Observations: []string{"o"}, Embedding: []float32{0, 0, 0, 1}},
		{Name: "no-vector", EntityType: "t", Observations: []string{"o"}},
	})
	require.NoError(t, err)

	results, err := store.SearchSimilar(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3, "entities without an embedding are never candidates")
	assert.Equal(t, "exact", results[0].Entity.Name)
	assert.Equal(t, "close", results[1].Entity.Name)
	assert.Equal(t, "far", results[2].Entity.Name)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
	assert.LessOrEqual(t, results[1].Distance, results[2].Distance)
}

func TestSearchSimilarDimensionMismatch(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	requireVectorSearch(t, store)

	_, err := store.SearchSimilar(context.Background(), []float32{1, 2, 3}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearchSimilarSanitizesQuery(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	requireVectorSearch(t, store)

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "ent", EntityType: "t", Observations: []string{"o"}, Embedding: []float32{0, 1, 0, 0}},
	})
	require.NoError(t, err)

	// Non-finite components coerce to zero instead of failing the search.
	nan := float32(math.NaN())
	results, err := store.SearchSimilar(ctx, []float32{nan, 1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ent", results[0].Entity.Name)
}

func TestSearchNodesVectorQuery(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	requireVectorSearch(t, store)

	ctx := context.Background()
	err := store.CreateEntities(ctx, []apptype.Entity{
		{Name: "ent", EntityType: "t", Observations: []string{"o"}, Embedding: []float32{1, 0, 0, 0}},
	})
	require.NoError(t, err)

	// JSON adapters hand vectors over as []interface{} of float64.
	entities, _, err := store.SearchNodes(ctx, []interface{}{1.0, 0.0, 0.0, 0.0}, 5)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "ent", entities[0].Name)
}

func TestNormalizeLikePattern(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"golang", "%golang%"},
		{"Web Development", "%web%development%"},
		{"a-b_c d", "%a%b%c%d%"},
		{"50%", `%50\%%`},
		{`back\slash`, `%back\\slash%`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizeLikePattern(tc.in), "input %q", tc.in)
	}
}

func TestClampSearchLimit(t *testing.T) {
	assert.Equal(t, 10, clampSearchLimit(0, 10))
	assert.Equal(t, 1, clampSearchLimit(-5, 10))
	assert.Equal(t, 50, clampSearchLimit(51, 10))
	assert.Equal(t, 50, clampSearchLimit(1000, 10))
	assert.Equal(t, 1, clampSearchLimit(1, 10))
	assert.Equal(t, 50, clampSearchLimit(50, 10))
	assert.Equal(t, 25, clampSearchLimit(25, 10))
}
