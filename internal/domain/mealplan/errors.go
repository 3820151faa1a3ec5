package mealplan

import "errors"

var (
	ErrInvalidRange    = errors.New("start date is after end date")
	ErrInvalidServings = errors.New("item servings must be greater than 0")
)

// ErrIncompleteRecipe marks an item whose recipe has no components
var ErrIncompleteRecipe = errors.New("recipe has no components and cannot be planned")
