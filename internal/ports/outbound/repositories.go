// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/domain/share"
	"github.com/alchemorsel/planner/internal/domain/shared"
)

// Sentinel errors every store adapter maps its driver errors onto
var (
	ErrNotFound        = errors.New("record not found")
	ErrUniqueViolation = errors.New("unique constraint violation")
	ErrVersionConflict = errors.New("version conflict")
	ErrCacheMiss       = errors.New("cache miss")
)

// RecipeStore reads recipe trees. The engine services never write recipes.
type RecipeStore interface {
	// GetRecipeTree returns the raw rows of one recipe or ErrNotFound
	GetRecipeTree(ctx context.Context, recipeID string) (*recipe.Rows, error)
}

// RecipeWriter changes stored recipe trees
type RecipeWriter interface {
	// SaveRecipeTree replaces the recipe with rows.Recipe.ID
	SaveRecipeTree(ctx context.Context, rows recipe.Rows) error
	// DeleteRecipe removes a recipe tree or returns ErrNotFound. Shares and
	// plan items that point at it are left dangling.
	DeleteRecipe(ctx context.Context, recipeID string) error
}

// RecipeRepository is a recipe store that can also be written to. Every
// recipe write goes through the same value that serves reads so that read
// caches see the change.
type RecipeRepository interface {
	RecipeStore
	RecipeWriter
}

// ShareStore persists share links
type ShareStore interface {
	GetSharedRecipeByToken(ctx context.Context, shareID string) (*share.SharedRecipe, error)
	// InsertSharedRecipe assigns the row id and returns ErrUniqueViolation
	// when the token already exists.
	InsertSharedRecipe(ctx context.Context, row *share.SharedRecipe) error
	DeleteSharedRecipe(ctx context.Context, shareID string) error
	ListSharedRecipesByRecipe(ctx context.Context, recipeID string) ([]*share.SharedRecipe, error)
}

// MealPlanStore reads planned items
type MealPlanStore interface {
	GetMealPlan(ctx context.Context, mealPlanID string) (*mealplan.MealPlan, error)
	// GetMealPlanItems returns items with from <= date < to, in any order
	GetMealPlanItems(ctx context.Context, mealPlanID string, from, to time.Time) ([]mealplan.Item, error)
}

// MealPlanWriter stores plans
type MealPlanWriter interface {
	// SaveMealPlan creates or replaces the plan header and appends items.
	// It returns the items as stored, with ids and plan id filled in.
	SaveMealPlan(ctx context.Context, plan *mealplan.MealPlan, items ...mealplan.Item) ([]mealplan.Item, error)
}

// PreferenceStore persists user preferences
type PreferenceStore interface {
	// GetUserPreference returns the active row for key or ErrNotFound.
	// Inactive rows are never returned.
	GetUserPreference(ctx context.Context, key preference.Key) (*preference.Preference, error)
	GetUserPreferenceByID(ctx context.Context, id string) (*preference.Preference, error)
	// UpsertUserPreference inserts when expectedVersion is 0 and otherwise
	// updates only if the stored version still equals expectedVersion,
	// returning ErrVersionConflict if not. The new version is written back
	// into pref.
	UpsertUserPreference(ctx context.Context, pref *preference.Preference, expectedVersion int64) error
	ListUserPreferences(ctx context.Context, filter PreferenceFilter) ([]*preference.Preference, error)
}

// PreferenceFilter narrows ListUserPreferences
type PreferenceFilter struct {
	UserID     string
	Category   string
	ActiveOnly bool
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	// Get returns ErrCacheMiss for absent or expired keys
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Batch operations
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	MSet(ctx context.Context, items map[string][]byte, ttl time.Duration) error

	// Counter operations
	Increment(ctx context.Context, key string) (int64, error)
}

// EventPublisher hands domain events to whoever listens after a write
type EventPublisher interface {
	Publish(ctx context.Context, events ...shared.DomainEvent) error
}

// EngineMetrics records engine activity. Outcome is the error code of a
// failed operation or "OK".
type EngineMetrics interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
	ObserveAggregation(days, items, unresolved int)
	ObserveConfidence(category string, confidence float64)
}
