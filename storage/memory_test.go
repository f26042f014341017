package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/parliament/types"
)

func TestMemoryProjectStore(t *testing.T) {
	store := NewMemoryProjectStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &types.Project{ID: "p1", Name: "alpha", UserID: 1}))
	require.NoError(t, store.Put(ctx, &types.Project{ID: "p2", Name: "beta", UserID: 1}))
	require.NoError(t, store.Put(ctx, &types.Project{ID: "p3", Name: "gamma", UserID: 2}))

	t.Run("Get", func(t *testing.T) {
		p, err := store.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "alpha", p.Name)

		_, err = store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, &types.Project{ID: "p1", Name: "alpha-2", UserID: 1}))
		p, err := store.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "alpha-2", p.Name)
	})

	t.Run("ListByUser", func(t *testing.T) {
		projects, err := store.List(ctx, 1)
		require.NoError(t, err)
		require.Len(t, projects, 2)
		assert.Equal(t, "p1", projects[0].ID)
		assert.Equal(t, "p2", projects[1].ID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "p2"))
		_, err := store.Get(ctx, "p2")
		assert.ErrorIs(t, err, ErrNotFound)
		// Deleting a missing project is not an error.
		require.NoError(t, store.Delete(ctx, "p2"))
	})

	t.Run("RejectsEmptyID", func(t *testing.T) {
		assert.ErrorIs(t, store.Put(ctx, &types.Project{}), ErrInvalidInput)
		assert.ErrorIs(t, store.Put(ctx, nil), ErrInvalidInput)
	})
}

func TestMemoryKnowledgeStore(t *testing.T) {
	store := NewMemoryKnowledgeStore()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "p1", "Postgres handles relational workloads well", nil))
	require.NoError(t, store.Add(ctx, "p1", "Redis is an in-memory cache", map[string]string{"source": "notes"}))
	require.NoError(t, store.Add(ctx, "p2", "unrelated project content", nil))

	t.Run("RanksByTermOverlap", func(t *testing.T) {
		snippets, err := store.Search(ctx, "p1", "redis cache memory", 10)
		require.NoError(t, err)
		require.NotEmpty(t, snippets)
		assert.Contains(t, snippets[0].Content, "Redis")
		assert.Greater(t, snippets[0].Score, 0.0)
	})

	t.Run("NoMatchesReturnsEmpty", func(t *testing.T) {
		snippets, err := store.Search(ctx, "p1", "zeppelin", 10)
		require.NoError(t, err)
		assert.Empty(t, snippets)
	})

	t.Run("UnknownProjectReturnsEmpty", func(t *testing.T) {
		snippets, err := store.Search(ctx, "ghost", "redis", 10)
		require.NoError(t, err)
		assert.Empty(t, snippets)
	})

	t.Run("LimitApplies", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, "p1", "cache warming strategies", nil))
		snippets, err := store.Search(ctx, "p1", "cache", 1)
		require.NoError(t, err)
		assert.Len(t, snippets, 1)
	})

	t.Run("DeleteProject", func(t *testing.T) {
		require.NoError(t, store.DeleteProject(ctx, "p1"))
		snippets, err := store.Search(ctx, "p1", "redis", 10)
		require.NoError(t, err)
		assert.Empty(t, snippets)

		// Other projects unaffected.
		snippets, err = store.Search(ctx, "p2", "unrelated", 10)
		require.NoError(t, err)
		assert.Len(t, snippets, 1)
	})

	t.Run("RejectsEmptyInput", func(t *testing.T) {
		assert.ErrorIs(t, store.Add(ctx, "", "content", nil), ErrInvalidInput)
		assert.ErrorIs(t, store.Add(ctx, "p1", "", nil), ErrInvalidInput)
	})
}
