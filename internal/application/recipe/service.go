// Package recipe provides the application layer for recipe views
// This implements the use cases defined in the inbound ports
package recipe

import (
	"context"
	"time"

	"github.com/alchemorsel/planner/internal/application/common"
	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/ports/inbound"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RecipeService implements the recipe use cases
type RecipeService struct {
	recipes common.RecipeLoader
	inst    common.Instrumentation
	logger  *zap.Logger
}

// NewRecipeService creates a new recipe service
func NewRecipeService(
	store outbound.RecipeStore,
	metrics outbound.EngineMetrics,
	storageTimeout time.Duration,
	logger *zap.Logger,
) *RecipeService {
	return &RecipeService{
		recipes: common.NewRecipeLoader(store, storageTimeout),
		inst:    common.NewInstrumentation("planner/recipe", metrics),
		logger:  logger.Named("recipe-service"),
	}
}

var _ inbound.RecipeService = (*RecipeService)(nil)

// GetRecipe returns the assembled recipe, scaled when servings is given
func (s *RecipeService) GetRecipe(ctx context.Context, recipeID string, servings *int) (view *inbound.RecipeView, err error) {
	ctx, finish := s.inst.Start(ctx, "recipe.get", attribute.String("recipe_id", recipeID))
	defer func() { finish(err) }()

	if recipeID == "" {
		return nil, errors.NewInvalidArgumentError("recipe_id", "recipe id is required")
	}
	if servings != nil && *servings <= 0 {
		return nil, errors.NewInvalidArgumentError("servings", "servings must be greater than 0")
	}

	g, err := s.recipes.Load(ctx, recipeID)
	if err != nil {
		s.logger.Warn("Failed to load recipe",
			zap.String("recipe_id", recipeID),
			zap.Error(err),
		)
		return nil, err
	}

	view = &inbound.RecipeView{Recipe: g}
	if servings == nil {
		return view, nil
	}

	scaled, scaleErr := recipe.ScaleGraph(g, *servings)
	if scaleErr != nil {
		s.logger.Error("Recipe cannot be scaled",
			zap.String("recipe_id", recipeID),
			zap.Int("servings", *servings),
			zap.Error(scaleErr),
		)
		return nil, common.ScaleError(recipeID, scaleErr)
	}
	view.Scaled = scaled

	s.logger.Debug("Recipe scaled",
		zap.String("recipe_id", recipeID),
		zap.Int("servings", *servings),
		zap.Int("components", g.ComponentCount()),
	)

	return view, nil
}
