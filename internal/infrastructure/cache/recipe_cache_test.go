package cache_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/infrastructure/cache"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCache(t *testing.T, store outbound.RecipeRepository) (*cache.RecipeCache, *memory.CacheRepository) {
	t.Helper()
	repo := memory.NewCacheRepository(0)
	t.Cleanup(func() { _ = repo.Close() })
	return cache.NewRecipeCache(store, repo, time.Minute, zap.NewNop()), repo
}

func TestRecipeCache_ReadThrough(t *testing.T) {
	rows := testutils.SoupRows()
	store := &testutils.MockRecipeStore{}
	store.On("GetRecipeTree", mock.Anything, rows.Recipe.ID).Return(&rows, nil).Once()

	rc, repo := newCache(t, store)
	ctx := context.Background()

	first, err := rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err)
	second, err := rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err)

	store.AssertNumberOfCalls(t, "GetRecipeTree", 1)
	assert.Equal(t, first.Components, second.Components)
	assert.Equal(t, first.Ingredients, second.Ingredients)
	assert.True(t, first.Recipe.CreatedAt.Equal(second.Recipe.CreatedAt))

	exists, err := repo.Exists(ctx, cache.BuildRecipeTreeKey(rows.Recipe.ID))
	require.NoError(t, err)
	assert.True(t, exists)

	stats, err := rc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{Hits: 1, Misses: 1}, stats)
}

func TestRecipeCache_CachedRowsAssembleIdentically(t *testing.T) {
	rows := testutils.NewRecipeRowsBuilder().WithRandomComponents(3).Build()
	store := memory.NewStore()
	store.PutRecipe(rows)

	rc, _ := newCache(t, store)
	ctx := context.Background()

	_, err := rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err)
	cached, err := rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err)

	want, err := recipe.Assemble(rows)
	require.NoError(t, err)
	got, err := recipe.Assemble(*cached)
	require.NoError(t, err)
	assert.Equal(t, want.Components(), got.Components())
}

func TestRecipeCache_NotFoundIsNotCached(t *testing.T) {
	store := &testutils.MockRecipeStore{}
	store.On("GetRecipeTree", mock.Anything, "missing").Return(nil, outbound.ErrNotFound).Twice()

	rc, _ := newCache(t, store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := rc.GetRecipeTree(ctx, "missing")
		assert.ErrorIs(t, err, outbound.ErrNotFound)
	}
	store.AssertExpectations(t)
}

func TestRecipeCache_Invalidate(t *testing.T) {
	rows := testutils.SoupRows()
	store := memory.NewStore()
	store.PutRecipe(rows)

	rc, _ := newCache(t, store)
	ctx := context.Background()

	_, err := rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err)

	require.NoError(t, store.DeleteRecipe(ctx, rows.Recipe.ID))
	_, err = rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err, "cached rows are served until invalidated")

	require.NoError(t, rc.Invalidate(ctx, rows.Recipe.ID))
	_, err = rc.GetRecipeTree(ctx, rows.Recipe.ID)
	assert.ErrorIs(t, err, outbound.ErrNotFound)
}

func TestRecipeCache_DeleteRecipeDropsCachedTree(t *testing.T) {
	rows := testutils.SoupRows()
	store := memory.NewStore()
	store.PutRecipe(rows)

	rc, repo := newCache(t, store)
	ctx := context.Background()

	_, err := rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err)

	require.NoError(t, rc.DeleteRecipe(ctx, rows.Recipe.ID))

	exists, err := repo.Exists(ctx, cache.BuildRecipeTreeKey(rows.Recipe.ID))
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = rc.GetRecipeTree(ctx, rows.Recipe.ID)
	assert.ErrorIs(t, err, outbound.ErrNotFound)
}

func TestRecipeCache_SaveRecipeTreeServesNewRows(t *testing.T) {
	rows := testutils.SoupRows()
	store := memory.NewStore()
	store.PutRecipe(rows)

	rc, _ := newCache(t, store)
	ctx := context.Background()

	_, err := rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err)

	edited := rows
	edited.Recipe.Name = "Thick soup"
	edited.Ingredients = append([]recipe.IngredientRow(nil), rows.Ingredients...)
	edited.Ingredients[0].Quantity = 5
	require.NoError(t, rc.SaveRecipeTree(ctx, edited))

	got, err := rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thick soup", got.Recipe.Name)
	assert.Equal(t, 5.0, got.Ingredients[0].Quantity)
}

func TestRecipeCache_FailedStoreWriteKeepsCachedTree(t *testing.T) {
	rows := testutils.SoupRows()
	store := &testutils.MockRecipeStore{}
	store.On("GetRecipeTree", mock.Anything, rows.Recipe.ID).Return(&rows, nil).Once()
	store.On("DeleteRecipe", mock.Anything, rows.Recipe.ID).Return(stderrors.New("disk full")).Once()

	rc, repo := newCache(t, store)
	ctx := context.Background()

	_, err := rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err)

	assert.Error(t, rc.DeleteRecipe(ctx, rows.Recipe.ID))

	exists, err := repo.Exists(ctx, cache.BuildRecipeTreeKey(rows.Recipe.ID))
	require.NoError(t, err)
	assert.True(t, exists)
	store.AssertExpectations(t)
}

func TestRecipeCache_FailedInvalidationIsReported(t *testing.T) {
	rows := testutils.SoupRows()
	store := memory.NewStore()
	store.PutRecipe(rows)

	rc := cache.NewRecipeCache(store, failingCache{}, time.Minute, zap.NewNop())
	ctx := context.Background()

	err := rc.DeleteRecipe(ctx, rows.Recipe.ID)
	assert.ErrorIs(t, err, errCacheDown)

	_, err = store.GetRecipeTree(ctx, rows.Recipe.ID)
	assert.ErrorIs(t, err, outbound.ErrNotFound, "the store write is kept")
}

func TestRecipeCache_CorruptEntryFallsBackToStore(t *testing.T) {
	rows := testutils.SoupRows()
	store := &testutils.MockRecipeStore{}
	store.On("GetRecipeTree", mock.Anything, rows.Recipe.ID).Return(&rows, nil).Once()

	rc, repo := newCache(t, store)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, cache.BuildRecipeTreeKey(rows.Recipe.ID), []byte("{not json"), time.Minute))

	got, err := rc.GetRecipeTree(ctx, rows.Recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, rows.Recipe.ID, got.Recipe.ID)
	store.AssertExpectations(t)
}

func TestRecipeCache_Warm(t *testing.T) {
	a := testutils.SoupRows()
	b := testutils.NewRecipeRowsBuilder().WithRandomComponents(1).Build()
	store := memory.NewStore()
	store.PutRecipe(a)
	store.PutRecipe(b)

	rc, repo := newCache(t, store)
	ctx := context.Background()

	n, err := rc.Warm(ctx, a.Recipe.ID, b.Recipe.ID, "missing")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	values, err := repo.MGet(ctx, []string{cache.BuildRecipeTreeKey(a.Recipe.ID), cache.BuildRecipeTreeKey(b.Recipe.ID)})
	require.NoError(t, err)
	assert.Len(t, values, 2)
}

// failingCache fails every call
type failingCache struct{ outbound.CacheRepository }

var errCacheDown = stderrors.New("cache down")

func (failingCache) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}
func (failingCache) Increment(context.Context, string) (int64, error) { return 0, errCacheDown }
func (failingCache) Delete(context.Context, string) error             { return errCacheDown }

func TestRecipeCache_CacheOutageDoesNotFailReads(t *testing.T) {
	rows := testutils.SoupRows()
	store := memory.NewStore()
	store.PutRecipe(rows)

	rc := cache.NewRecipeCache(store, failingCache{}, time.Minute, zap.NewNop())

	got, err := rc.GetRecipeTree(context.Background(), rows.Recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, rows.Recipe.Name, got.Recipe.Name)
}
