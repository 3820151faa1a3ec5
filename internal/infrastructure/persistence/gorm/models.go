// Package gorm provides GORM model definitions and store implementations
package gorm

import (
	"time"
)

// RecipeModel represents the GORM model for recipe headers
type RecipeModel struct {
	ID          string    `gorm:"type:varchar(64);primaryKey"`
	Name        string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	CreatedBy   string    `gorm:"type:varchar(64);not null;index"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time

	// Relationships
	Components []RecipeComponentModel `gorm:"foreignKey:RecipeID"`
}

// RecipeComponentModel represents one component of a recipe.
// A NULL base_servings marks a component that does not scale.
type RecipeComponentModel struct {
	ID           string `gorm:"type:varchar(64);primaryKey"`
	RecipeID     string `gorm:"type:varchar(64);not null;index"`
	Name         string `gorm:"type:varchar(255);not null"`
	Storeable    bool   `gorm:"not null"`
	BaseServings *int
	OrderIndex   int `gorm:"column:order_index;not null;default:0"`

	// Relationships
	Ingredients  []RecipeIngredientModel  `gorm:"foreignKey:ComponentID"`
	Instructions []RecipeInstructionModel `gorm:"foreignKey:ComponentID"`
}

// RecipeIngredientModel represents one ingredient line of a component
type RecipeIngredientModel struct {
	ID          string  `gorm:"type:varchar(64);primaryKey"`
	ComponentID string  `gorm:"type:varchar(64);not null;index"`
	Name        string  `gorm:"type:varchar(255);not null"`
	Quantity    float64 `gorm:"not null;default:0"`
	Unit        string  `gorm:"type:varchar(50)"`
	OrderIndex  int     `gorm:"column:order_index;not null;default:0"`
	Preparation string  `gorm:"type:text"`
}

// RecipeInstructionModel represents one instruction step of a component
type RecipeInstructionModel struct {
	ID          string `gorm:"type:varchar(64);primaryKey"`
	ComponentID string `gorm:"type:varchar(64);not null;index"`
	Text        string `gorm:"type:text;not null"`
	OrderIndex  int    `gorm:"column:order_index;not null;default:0"`
}

// SharedRecipeModel represents a public share link
type SharedRecipeModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	ShareID   string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	RecipeID  string    `gorm:"type:varchar(64);not null;index"`
	SharedBy  string    `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"index"`
	ExpiresAt *time.Time
}

// MealPlanModel represents a meal plan header
type MealPlanModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	UserID    string    `gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships
	Items []MealPlanItemModel `gorm:"foreignKey:MealPlanID"`
}

// MealPlanItemModel represents one planned recipe on a date. RecipeID is
// not a foreign key: a plan may outlive the recipes it references.
type MealPlanItemModel struct {
	ID         string    `gorm:"type:varchar(64);primaryKey"`
	MealPlanID string    `gorm:"type:varchar(64);not null;index:idx_meal_plan_items_plan_date,priority:1"`
	RecipeID   string    `gorm:"type:varchar(64);not null"`
	Date       time.Time `gorm:"not null;index:idx_meal_plan_items_plan_date,priority:2"`
	MealType   string    `gorm:"type:varchar(50)"`
	Servings   int       `gorm:"not null"`
	Notes      string    `gorm:"type:text"`
}

// UserPreferenceModel represents a learned preference. At most one active
// row may hold a (user, category, preference, context) key.
type UserPreferenceModel struct {
	ID         string    `gorm:"type:varchar(64);primaryKey"`
	UserID     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_preferences_active_key,priority:1,where:is_active"`
	Category   string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_user_preferences_active_key,priority:2,where:is_active"`
	Preference string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_user_preferences_active_key,priority:3,where:is_active"`
	Context    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_user_preferences_active_key,priority:4,where:is_active"`
	Confidence float64   `gorm:"not null"`
	Source     string    `gorm:"type:varchar(100)"`
	IsActive   bool      `gorm:"not null;index"`
	Version    int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false"`
}

// TableName specifies the table name for RecipeModel
func (RecipeModel) TableName() string { return "recipes" }

// TableName specifies the table name for RecipeComponentModel
func (RecipeComponentModel) TableName() string { return "recipe_components" }

// TableName specifies the table name for RecipeIngredientModel
func (RecipeIngredientModel) TableName() string { return "recipe_ingredients" }

// TableName specifies the table name for RecipeInstructionModel
func (RecipeInstructionModel) TableName() string { return "recipe_instructions" }

// TableName specifies the table name for SharedRecipeModel
func (SharedRecipeModel) TableName() string { return "shared_recipes" }

// TableName specifies the table name for MealPlanModel
func (MealPlanModel) TableName() string { return "meal_plans" }

// TableName specifies the table name for MealPlanItemModel
func (MealPlanItemModel) TableName() string { return "meal_plan_items" }

// TableName specifies the table name for UserPreferenceModel
func (UserPreferenceModel) TableName() string { return "user_preferences" }

// AllModels returns every model for AutoMigrate, parents first
func AllModels() []interface{} {
	return []interface{}{
		&RecipeModel{},
		&RecipeComponentModel{},
		&RecipeIngredientModel{},
		&RecipeInstructionModel{},
		&SharedRecipeModel{},
		&MealPlanModel{},
		&MealPlanItemModel{},
		&UserPreferenceModel{},
	}
}
