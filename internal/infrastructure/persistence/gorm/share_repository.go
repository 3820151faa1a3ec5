package gorm

import (
	"context"

	"github.com/alchemorsel/planner/internal/domain/share"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShareRepository implements outbound.ShareStore using GORM
type ShareRepository struct {
	db *gorm.DB
}

// NewShareRepository creates a new share repository
func NewShareRepository(db *gorm.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

var _ outbound.ShareStore = (*ShareRepository)(nil)

// GetSharedRecipeByToken finds a share by its public token
func (r *ShareRepository) GetSharedRecipeByToken(ctx context.Context, shareID string) (*share.SharedRecipe, error) {
	var model SharedRecipeModel

	result := r.db.WithContext(ctx).First(&model, "share_id = ?", shareID)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}

	return ModelToSharedRecipe(&model), nil
}

// InsertSharedRecipe stores a new share. The unique index on share_id turns
// a reused token into outbound.ErrUniqueViolation.
func (r *ShareRepository) InsertSharedRecipe(ctx context.Context, row *share.SharedRecipe) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	model := SharedRecipeToModel(row)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// DeleteSharedRecipe removes a share by token
func (r *ShareRepository) DeleteSharedRecipe(ctx context.Context, shareID string) error {
	result := r.db.WithContext(ctx).Where("share_id = ?", shareID).Delete(&SharedRecipeModel{})
	if result.Error != nil {
		return translateError(result.Error)
	}

	if result.RowsAffected == 0 {
		return outbound.ErrNotFound
	}

	return nil
}

// ListSharedRecipesByRecipe returns the shares of a recipe, oldest first
func (r *ShareRepository) ListSharedRecipesByRecipe(ctx context.Context, recipeID string) ([]*share.SharedRecipe, error) {
	var models []SharedRecipeModel

	result := r.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}

	shares := make([]*share.SharedRecipe, len(models))
	for i := range models {
		shares[i] = ModelToSharedRecipe(&models[i])
	}

	return shares, nil
}
