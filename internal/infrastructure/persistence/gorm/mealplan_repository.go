package gorm

import (
	"context"
	"time"

	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MealPlanRepository implements outbound.MealPlanStore using GORM.
// Dates are stored in UTC so range filters compare like with like.
type MealPlanRepository struct {
	db *gorm.DB
}

// NewMealPlanRepository creates a new meal plan repository
func NewMealPlanRepository(db *gorm.DB) *MealPlanRepository {
	return &MealPlanRepository{db: db}
}

var (
	_ outbound.MealPlanStore  = (*MealPlanRepository)(nil)
	_ outbound.MealPlanWriter = (*MealPlanRepository)(nil)
)

// GetMealPlan returns a plan header
func (r *MealPlanRepository) GetMealPlan(ctx context.Context, mealPlanID string) (*mealplan.MealPlan, error) {
	var model MealPlanModel

	result := r.db.WithContext(ctx).First(&model, "id = ?", mealPlanID)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}

	return ModelToMealPlan(&model), nil
}

// GetMealPlanItems returns the plan's items with from <= date < to
func (r *MealPlanRepository) GetMealPlanItems(ctx context.Context, mealPlanID string, from, to time.Time) ([]mealplan.Item, error) {
	var models []MealPlanItemModel

	result := r.db.WithContext(ctx).
		Where("meal_plan_id = ?", mealPlanID).
		Where("date >= ? AND date < ?", from.UTC(), to.UTC()).
		Find(&models)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}

	items := make([]mealplan.Item, len(models))
	for i, model := range models {
		items[i] = ModelToMealPlanItem(model)
	}

	return items, nil
}

// SaveMealPlan creates or replaces a plan header and appends items.
// Missing ids are generated; the stored items are returned and the
// caller's slice is left untouched.
func (r *MealPlanRepository) SaveMealPlan(ctx context.Context, plan *mealplan.MealPlan, items ...mealplan.Item) ([]mealplan.Item, error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}

	stored := make([]mealplan.Item, len(items))
	models := make([]MealPlanItemModel, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.MealPlanID = plan.ID
		item.Date = item.Date.UTC()
		stored[i] = item
		models[i] = MealPlanItemToModel(item)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(MealPlanToModel(plan)).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.Create(&models).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return stored, nil
}
