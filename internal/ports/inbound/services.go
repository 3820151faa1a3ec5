// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"
	"time"

	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/domain/share"
)

// RecipeService serves read views of recipes
type RecipeService interface {
	// GetRecipe returns the assembled recipe, scaled uniformly when servings
	// is given.
	GetRecipe(ctx context.Context, recipeID string, servings *int) (*RecipeView, error)
}

// ShareService manages public share links
type ShareService interface {
	Issue(ctx context.Context, cmd IssueShareCommand) (*share.SharedRecipe, error)
	Resolve(ctx context.Context, shareID string) (*SharedRecipeView, error)
	Revoke(ctx context.Context, shareID, requestingUserID string) error
	ListForRecipe(ctx context.Context, recipeID, requestingUserID string) ([]ShareLinkDTO, error)
}

// MealPlanService aggregates meal plans into calendar views
type MealPlanService interface {
	Aggregate(ctx context.Context, query AggregateQuery) (*mealplan.Calendar, error)
}

// PreferenceService merges preference signals
type PreferenceService interface {
	Merge(ctx context.Context, cmd MergePreferenceCommand) (*MergeResult, error)
	Deactivate(ctx context.Context, preferenceID, userID string) (*preference.Preference, error)
	Reactivate(ctx context.Context, preferenceID, userID string) (*preference.Preference, error)
	ListActive(ctx context.Context, userID, category string) ([]*preference.Preference, error)
}

// Command and query objects

// IssueShareCommand contains data for issuing a share link
type IssueShareCommand struct {
	RecipeID string `validate:"required"`
	UserID   string `validate:"required"`
	// TTL is optional; nil means the link never expires
	TTL *time.Duration
}

// AggregateQuery selects the calendar to build
type AggregateQuery struct {
	MealPlanID string    `validate:"required"`
	StartDate  time.Time
	EndDate    time.Time
}

// MergePreferenceCommand is one incoming preference signal
type MergePreferenceCommand struct {
	UserID     string              `validate:"required,max=64"`
	Category   string              `validate:"required,max=100,printable"`
	Preference string              `validate:"required,max=255,printable"`
	Context    string              `validate:"max=255,printable"`
	Weight     float64             `validate:"gt=0,lte=1"`
	Polarity   preference.Polarity `validate:"required,oneof=positive negative"`
	Source     string              `validate:"required,max=100"`
}

// Results and views

// RecipeView is a recipe as presented to a reader
type RecipeView struct {
	Recipe *recipe.Graph       `json:"recipe"`
	Scaled *recipe.ScaledGraph `json:"scaled,omitempty"`
}

// SharedRecipeView is a resolved share link
type SharedRecipeView struct {
	Share  *share.SharedRecipe `json:"share"`
	Recipe *recipe.Graph       `json:"recipe"`
}

// ShareLinkDTO is the owner's view of one link
type ShareLinkDTO struct {
	Share  *share.SharedRecipe `json:"share"`
	Status share.Status        `json:"status"`
}

// MergeResult reports what a merge did
type MergeResult struct {
	// Preference is nil when a negative signal found nothing to weaken
	Preference *preference.Preference `json:"preference,omitempty"`
	Previous   float64                `json:"previous"`
	Created    bool                   `json:"created"`
	Applied    bool                   `json:"applied"`
}
