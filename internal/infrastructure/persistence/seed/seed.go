// Package seed writes the demo recipe and meal plan through the storage
// ports, so it works for every database driver and keeps read caches
// in step with the data.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/ports/outbound"
)

// Seed ids of the demo data
const (
	DemoUserID     = "demo-user"
	DemoRecipeID   = "5d3c1a4e-0000-4000-8000-000000000001"
	DemoMealPlanID = "5d3c1a4e-0000-4000-8000-0000000000a1"
)

// DemoDays is the length of the demo plan
const DemoDays = 7

// Demo stores the demo recipe and a week of dinners starting on the day of
// now. It does nothing when the demo recipe already exists.
func Demo(ctx context.Context, recipes outbound.RecipeRepository, plans outbound.MealPlanWriter, now time.Time) error {
	_, err := recipes.GetRecipeTree(ctx, DemoRecipeID)
	if err == nil {
		return nil // Already seeded
	}
	if !errors.Is(err, outbound.ErrNotFound) {
		return fmt.Errorf("failed to look up demo recipe: %w", err)
	}

	if err := recipes.SaveRecipeTree(ctx, SoupRows(now)); err != nil {
		return fmt.Errorf("failed to create demo recipe: %w", err)
	}

	plan := &mealplan.MealPlan{
		ID:        DemoMealPlanID,
		Name:      "Demo week",
		UserID:    DemoUserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := plans.SaveMealPlan(ctx, plan, WeekOfDinners(now)...); err != nil {
		return fmt.Errorf("failed to create demo meal plan: %w", err)
	}

	return nil
}

// SoupRows is the demo recipe: a base for four that scales and a garnish
// that does not.
func SoupRows(now time.Time) recipe.Rows {
	four := 4
	return recipe.Rows{
		Recipe: recipe.RecipeRow{
			ID:          DemoRecipeID,
			Name:        "Soup",
			Description: "A weeknight vegetable soup with optional garnish",
			CreatedBy:   DemoUserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Components: []recipe.ComponentRow{
			{ID: "soup-base", RecipeID: DemoRecipeID, Name: "Base", Storeable: true, BaseServings: &four, Order: 1},
			{ID: "soup-garnish", RecipeID: DemoRecipeID, Name: "Garnish", Order: 2},
		},
		Ingredients: []recipe.IngredientRow{
			{ID: "soup-base-carrot", ComponentID: "soup-base", Name: "carrot", Quantity: 2, Unit: "pcs", Order: 1, Preparation: "diced"},
			{ID: "soup-base-stock", ComponentID: "soup-base", Name: "stock", Quantity: 1, Unit: "l", Order: 2},
			{ID: "soup-garnish-parsley", ComponentID: "soup-garnish", Name: "parsley", Quantity: 1, Unit: "bunch", Order: 1},
		},
		Instructions: []recipe.InstructionRow{
			{ID: "soup-base-1", ComponentID: "soup-base", Text: "Sweat the carrots", Order: 1},
			{ID: "soup-base-2", ComponentID: "soup-base", Text: "Add stock and simmer for 20 minutes", Order: 2},
			{ID: "soup-garnish-1", ComponentID: "soup-garnish", Text: "Chop the parsley", Order: 1},
		},
	}
}

// WeekOfDinners plans the demo recipe for dinner on DemoDays consecutive
// days with 2, 3 or 4 servings.
func WeekOfDinners(now time.Time) []mealplan.Item {
	start := mealplan.Day(now)
	items := make([]mealplan.Item, 0, DemoDays)
	for day := 0; day < DemoDays; day++ {
		items = append(items, mealplan.Item{
			MealPlanID: DemoMealPlanID,
			RecipeID:   DemoRecipeID,
			Date:       start.AddDate(0, 0, day),
			MealType:   "dinner",
			Servings:   2 + day%3,
		})
	}
	return items
}
