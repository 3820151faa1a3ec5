// Package gorm provides GORM-based repository implementations
package gorm

import (
	"context"

	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecipeRepository implements outbound.RecipeRepository using GORM
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

var _ outbound.RecipeRepository = (*RecipeRepository)(nil)

// GetRecipeTree loads the recipe header with all components, ingredients
// and instructions. Rows come back in storage order.
func (r *RecipeRepository) GetRecipeTree(ctx context.Context, recipeID string) (*recipe.Rows, error) {
	var model RecipeModel

	result := r.db.WithContext(ctx).
		Preload("Components").
		Preload("Components.Ingredients").
		Preload("Components.Instructions").
		First(&model, "id = ?", recipeID)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}

	return ModelToRecipeRows(&model), nil
}

// SaveRecipeTree writes a full recipe tree in one transaction. Missing row
// ids are generated. An existing recipe with the same id is replaced.
func (r *RecipeRepository) SaveRecipeTree(ctx context.Context, rows recipe.Rows) error {
	model := RecipeRowsToModel(withRowIDs(rows))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteRecipeTree(tx, model.ID); err != nil {
			return err
		}
		if err := tx.Where("id = ?", model.ID).Delete(&RecipeModel{}).Error; err != nil {
			return err
		}
		return tx.Create(model).Error
	})
	return translateError(err)
}

// DeleteRecipe removes a recipe tree. Shares and plan items that point at
// it are left in place.
func (r *RecipeRepository) DeleteRecipe(ctx context.Context, recipeID string) error {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteRecipeTree(tx, recipeID); err != nil {
			return err
		}
		result := tx.Delete(&RecipeModel{}, "id = ?", recipeID)
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return translateError(err)
	}
	if deleted == 0 {
		return outbound.ErrNotFound
	}
	return nil
}

// deleteRecipeTree removes the children of a recipe, leaving the header
func deleteRecipeTree(tx *gorm.DB, recipeID string) error {
	components := tx.Model(&RecipeComponentModel{}).Select("id").Where("recipe_id = ?", recipeID)

	if err := tx.Where("component_id IN (?)", components).Delete(&RecipeIngredientModel{}).Error; err != nil {
		return err
	}
	if err := tx.Where("component_id IN (?)", components).Delete(&RecipeInstructionModel{}).Error; err != nil {
		return err
	}
	return tx.Where("recipe_id = ?", recipeID).Delete(&RecipeComponentModel{}).Error
}

func withRowIDs(rows recipe.Rows) recipe.Rows {
	out := recipe.Rows{Recipe: rows.Recipe}
	if out.Recipe.ID == "" {
		out.Recipe.ID = uuid.NewString()
	}

	out.Components = append(out.Components, rows.Components...)
	for i := range out.Components {
		if out.Components[i].ID == "" {
			out.Components[i].ID = uuid.NewString()
		}
	}
	out.Ingredients = append(out.Ingredients, rows.Ingredients...)
	for i := range out.Ingredients {
		if out.Ingredients[i].ID == "" {
			out.Ingredients[i].ID = uuid.NewString()
		}
	}
	out.Instructions = append(out.Instructions, rows.Instructions...)
	for i := range out.Instructions {
		if out.Instructions[i].ID == "" {
			out.Instructions[i].ID = uuid.NewString()
		}
	}
	return out
}
