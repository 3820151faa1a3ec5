// Package gorm provides mapping between domain entities and GORM models
package gorm

import (
	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/domain/share"
)

// ModelToRecipeRows flattens a preloaded recipe tree into storage rows
func ModelToRecipeRows(model *RecipeModel) *recipe.Rows {
	rows := &recipe.Rows{
		Recipe: recipe.RecipeRow{
			ID:          model.ID,
			Name:        model.Name,
			Description: model.Description,
			CreatedBy:   model.CreatedBy,
			CreatedAt:   model.CreatedAt,
			UpdatedAt:   model.UpdatedAt,
		},
	}

	for _, c := range model.Components {
		rows.Components = append(rows.Components, recipe.ComponentRow{
			ID:           c.ID,
			RecipeID:     c.RecipeID,
			Name:         c.Name,
			Storeable:    c.Storeable,
			BaseServings: c.BaseServings,
			Order:        c.OrderIndex,
		})
		for _, i := range c.Ingredients {
			rows.Ingredients = append(rows.Ingredients, recipe.IngredientRow{
				ID:          i.ID,
				ComponentID: i.ComponentID,
				Name:        i.Name,
				Quantity:    i.Quantity,
				Unit:        i.Unit,
				Order:       i.OrderIndex,
				Preparation: i.Preparation,
			})
		}
		for _, s := range c.Instructions {
			rows.Instructions = append(rows.Instructions, recipe.InstructionRow{
				ID:          s.ID,
				ComponentID: s.ComponentID,
				Text:        s.Text,
				Order:       s.OrderIndex,
			})
		}
	}

	return rows
}

// RecipeRowsToModel builds a recipe tree model from storage rows. Rows whose
// component is missing are dropped since they have nowhere to hang.
func RecipeRowsToModel(rows recipe.Rows) *RecipeModel {
	model := &RecipeModel{
		ID:          rows.Recipe.ID,
		Name:        rows.Recipe.Name,
		Description: rows.Recipe.Description,
		CreatedBy:   rows.Recipe.CreatedBy,
		CreatedAt:   rows.Recipe.CreatedAt,
		UpdatedAt:   rows.Recipe.UpdatedAt,
	}

	index := make(map[string]int, len(rows.Components))
	for _, c := range rows.Components {
		recipeID := c.RecipeID
		if recipeID == "" {
			recipeID = rows.Recipe.ID
		}
		index[c.ID] = len(model.Components)
		model.Components = append(model.Components, RecipeComponentModel{
			ID:           c.ID,
			RecipeID:     recipeID,
			Name:         c.Name,
			Storeable:    c.Storeable,
			BaseServings: c.BaseServings,
			OrderIndex:   c.Order,
		})
	}
	for _, i := range rows.Ingredients {
		pos, ok := index[i.ComponentID]
		if !ok {
			continue
		}
		model.Components[pos].Ingredients = append(model.Components[pos].Ingredients, RecipeIngredientModel{
			ID:          i.ID,
			ComponentID: i.ComponentID,
			Name:        i.Name,
			Quantity:    i.Quantity,
			Unit:        i.Unit,
			OrderIndex:  i.Order,
			Preparation: i.Preparation,
		})
	}
	for _, s := range rows.Instructions {
		pos, ok := index[s.ComponentID]
		if !ok {
			continue
		}
		model.Components[pos].Instructions = append(model.Components[pos].Instructions, RecipeInstructionModel{
			ID:          s.ID,
			ComponentID: s.ComponentID,
			Text:        s.Text,
			OrderIndex:  s.Order,
		})
	}

	return model
}

// SharedRecipeToModel converts a share link to a GORM model
func SharedRecipeToModel(s *share.SharedRecipe) *SharedRecipeModel {
	return &SharedRecipeModel{
		ID:        s.ID,
		ShareID:   s.ShareID,
		RecipeID:  s.RecipeID,
		SharedBy:  s.SharedBy,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

// ModelToSharedRecipe converts a GORM model to a share link
func ModelToSharedRecipe(model *SharedRecipeModel) *share.SharedRecipe {
	return &share.SharedRecipe{
		ID:        model.ID,
		ShareID:   model.ShareID,
		RecipeID:  model.RecipeID,
		SharedBy:  model.SharedBy,
		CreatedAt: model.CreatedAt,
		ExpiresAt: model.ExpiresAt,
	}
}

// MealPlanToModel converts a plan header to a GORM model
func MealPlanToModel(p *mealplan.MealPlan) *MealPlanModel {
	return &MealPlanModel{
		ID:        p.ID,
		Name:      p.Name,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ModelToMealPlan converts a GORM model to a plan header
func ModelToMealPlan(model *MealPlanModel) *mealplan.MealPlan {
	return &mealplan.MealPlan{
		ID:        model.ID,
		Name:      model.Name,
		UserID:    model.UserID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// MealPlanItemToModel converts a planned item to a GORM model
func MealPlanItemToModel(item mealplan.Item) MealPlanItemModel {
	return MealPlanItemModel{
		ID:         item.ID,
		MealPlanID: item.MealPlanID,
		RecipeID:   item.RecipeID,
		Date:       item.Date,
		MealType:   item.MealType,
		Servings:   item.Servings,
		Notes:      item.Notes,
	}
}

// ModelToMealPlanItem converts a GORM model to a planned item
func ModelToMealPlanItem(model MealPlanItemModel) mealplan.Item {
	return mealplan.Item{
		ID:         model.ID,
		MealPlanID: model.MealPlanID,
		RecipeID:   model.RecipeID,
		Date:       model.Date,
		MealType:   model.MealType,
		Servings:   model.Servings,
		Notes:      model.Notes,
	}
}

// PreferenceToModel converts a preference to a GORM model
func PreferenceToModel(p *preference.Preference) *UserPreferenceModel {
	return &UserPreferenceModel{
		ID:         p.ID,
		UserID:     p.UserID,
		Category:   p.Category,
		Preference: p.Preference,
		Context:    p.Context,
		Confidence: p.Confidence,
		Source:     p.Source,
		IsActive:   p.IsActive,
		Version:    p.Version,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// ModelToPreference converts a GORM model to a preference
func ModelToPreference(model *UserPreferenceModel) *preference.Preference {
	return &preference.Preference{
		ID:         model.ID,
		UserID:     model.UserID,
		Category:   model.Category,
		Preference: model.Preference,
		Context:    model.Context,
		Confidence: model.Confidence,
		Source:     model.Source,
		IsActive:   model.IsActive,
		Version:    model.Version,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}
