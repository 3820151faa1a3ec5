// Package cache provides the read-through recipe tree cache
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"go.uber.org/zap"
)

// Cache key layout
const (
	recipeTreeKeyPrefix = "recipe_tree:"
	hitsKey             = "stats:recipe_tree:hits"
	missesKey           = "stats:recipe_tree:misses"
)

// CachedRecipeTree is the cached form of a recipe's stored rows
type CachedRecipeTree struct {
	Rows     recipe.Rows `json:"rows"`
	CachedAt time.Time   `json:"cached_at"`
}

// Stats reports cache effectiveness
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// RecipeCache decorates a RecipeRepository with a read-through cache. Only
// raw rows are cached, so assembly and its integrity checks still run on
// every read. Not-found results are not cached. Writes go to the store first
// and then drop the cached tree.
type RecipeCache struct {
	store  outbound.RecipeRepository
	cache  outbound.CacheRepository
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewRecipeCache creates a new recipe tree cache
func NewRecipeCache(store outbound.RecipeRepository, cache outbound.CacheRepository, ttl time.Duration, logger *zap.Logger) *RecipeCache {
	return &RecipeCache{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.Named("recipe-cache"),
	}
}

var _ outbound.RecipeRepository = (*RecipeCache)(nil)

// BuildRecipeTreeKey returns the cache key for a recipe tree
func BuildRecipeTreeKey(recipeID string) string {
	return recipeTreeKeyPrefix + recipeID
}

// GetRecipeTree returns cached rows or loads and caches them. Cache
// failures fall back to the store and never fail the read.
func (c *RecipeCache) GetRecipeTree(ctx context.Context, recipeID string) (*recipe.Rows, error) {
	key := BuildRecipeTreeKey(recipeID)

	data, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var cached CachedRecipeTree
		if err := json.Unmarshal(data, &cached); err == nil {
			c.count(ctx, hitsKey)
			c.logger.Debug("Recipe tree cache hit", zap.String("recipe_id", recipeID))
			return &cached.Rows, nil
		}
		c.logger.Error("Failed to unmarshal cached recipe tree",
			zap.String("recipe_id", recipeID),
			zap.Error(err))
	case !errors.Is(err, outbound.ErrCacheMiss):
		c.logger.Warn("Recipe tree cache read failed",
			zap.String("recipe_id", recipeID),
			zap.Error(err))
	}

	c.count(ctx, missesKey)

	rows, err := c.store.GetRecipeTree(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(CachedRecipeTree{Rows: *rows, CachedAt: c.now()})
	if err != nil {
		c.logger.Error("Failed to marshal recipe tree", zap.String("recipe_id", recipeID), zap.Error(err))
		return rows, nil
	}
	if err := c.cache.Set(ctx, key, encoded, c.ttl); err != nil {
		c.logger.Warn("Failed to cache recipe tree", zap.String("recipe_id", recipeID), zap.Error(err))
	}

	return rows, nil
}

// SaveRecipeTree writes the tree and invalidates its cached rows. A failed
// invalidation is returned even though the write succeeded, because the
// cache would otherwise keep serving the old tree until it expires.
func (c *RecipeCache) SaveRecipeTree(ctx context.Context, rows recipe.Rows) error {
	if err := c.store.SaveRecipeTree(ctx, rows); err != nil {
		return err
	}
	return c.invalidateAfterWrite(ctx, rows.Recipe.ID)
}

// DeleteRecipe removes the tree from the store and from the cache
func (c *RecipeCache) DeleteRecipe(ctx context.Context, recipeID string) error {
	if err := c.store.DeleteRecipe(ctx, recipeID); err != nil {
		return err
	}
	return c.invalidateAfterWrite(ctx, recipeID)
}

func (c *RecipeCache) invalidateAfterWrite(ctx context.Context, recipeID string) error {
	if recipeID == "" {
		return nil
	}
	if err := c.Invalidate(ctx, recipeID); err != nil {
		c.logger.Error("Failed to invalidate recipe tree",
			zap.String("recipe_id", recipeID),
			zap.Error(err))
		return fmt.Errorf("recipe %s written but cache invalidation failed: %w", recipeID, err)
	}
	c.logger.Debug("Recipe tree invalidated", zap.String("recipe_id", recipeID))
	return nil
}

// Invalidate drops a cached recipe tree after the recipe changed
func (c *RecipeCache) Invalidate(ctx context.Context, recipeID string) error {
	return c.cache.Delete(ctx, BuildRecipeTreeKey(recipeID))
}

// Warm loads the given recipes into the cache in one batch write. Recipes
// that fail to load are skipped.
func (c *RecipeCache) Warm(ctx context.Context, recipeIDs ...string) (int, error) {
	items := make(map[string][]byte, len(recipeIDs))
	for _, id := range recipeIDs {
		rows, err := c.store.GetRecipeTree(ctx, id)
		if err != nil {
			c.logger.Debug("Skipping recipe during warmup", zap.String("recipe_id", id), zap.Error(err))
			continue
		}
		encoded, err := json.Marshal(CachedRecipeTree{Rows: *rows, CachedAt: c.now()})
		if err != nil {
			continue
		}
		items[BuildRecipeTreeKey(id)] = encoded
	}

	if err := c.cache.MSet(ctx, items, c.ttl); err != nil {
		return 0, err
	}
	return len(items), nil
}

// Stats returns the hit and miss counters
func (c *RecipeCache) Stats(ctx context.Context) (Stats, error) {
	values, err := c.cache.MGet(ctx, []string{hitsKey, missesKey})
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Hits:   parseCounter(values[hitsKey]),
		Misses: parseCounter(values[missesKey]),
	}, nil
}

func (c *RecipeCache) count(ctx context.Context, key string) {
	if _, err := c.cache.Increment(ctx, key); err != nil {
		c.logger.Debug("Failed to update cache counter", zap.String("key", key), zap.Error(err))
	}
}

func parseCounter(raw []byte) int64 {
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
