package common

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/pkg/errors"
)

// RecipeLoader fetches recipe rows and assembles them into graphs
type RecipeLoader struct {
	store   outbound.RecipeStore
	timeout time.Duration
}

// NewRecipeLoader creates a loader bounding each fetch by timeout
func NewRecipeLoader(store outbound.RecipeStore, timeout time.Duration) RecipeLoader {
	return RecipeLoader{store: store, timeout: timeout}
}

// Load returns the assembled graph of recipeID. Errors are always
// *errors.AppError: NOT_FOUND, DATA_INTEGRITY or a storage code.
func (l RecipeLoader) Load(ctx context.Context, recipeID string) (*recipe.Graph, error) {
	var rows *recipe.Rows
	err := CallStorage(ctx, l.timeout, func(ctx context.Context) error {
		var err error
		rows, err = l.store.GetRecipeTree(ctx, recipeID)
		return err
	})
	if err != nil {
		return nil, LookupError("load recipe", "recipe", recipeID, err)
	}

	g, err := recipe.Assemble(*rows)
	if err != nil {
		return nil, errors.NewDataIntegrityError(
			fmt.Sprintf("Recipe %s: %v", recipeID, err), err,
		).WithMetadata("recipe_id", recipeID)
	}
	return g, nil
}

// ScaleError translates a scaling failure
func ScaleError(recipeID string, err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, recipe.ErrInvalidTargetServings) {
		return errors.NewInvalidArgumentError("servings", err.Error()).WithCause(err)
	}
	return errors.NewInvalidRecipeStateError(recipeID, err)
}
