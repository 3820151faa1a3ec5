// Package mealplan builds calendar views over planned meals. A planned item
// references its recipe by id only; resolution happens through storage.
package mealplan

import (
	"time"
)

// MealPlan is the stored header of a plan
type MealPlan struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is one planned meal. MealType is caller-supplied free text and is
// never normalised.
type Item struct {
	ID         string    `json:"id"`
	MealPlanID string    `json:"meal_plan_id"`
	RecipeID   string    `json:"recipe_id"`
	Date       time.Time `json:"date"`
	MealType   string    `json:"meal_type"`
	Servings   int       `json:"servings"`
	Notes      string    `json:"notes,omitempty"`
}

// Day truncates t to midnight in t's own location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date, each read
// in its own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
