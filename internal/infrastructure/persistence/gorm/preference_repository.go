package gorm

import (
	"context"

	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PreferenceRepository implements outbound.PreferenceStore using GORM.
// Updates are compare-and-swap on the version column.
type PreferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

var _ outbound.PreferenceStore = (*PreferenceRepository)(nil)

// GetUserPreference returns the active row for key
func (r *PreferenceRepository) GetUserPreference(ctx context.Context, key preference.Key) (*preference.Preference, error) {
	var model UserPreferenceModel

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND category = ? AND preference = ? AND context = ?",
			key.UserID, key.Category, key.Preference, key.Context).
		Where("is_active = ?", true).
		First(&model)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}

	return ModelToPreference(&model), nil
}

// GetUserPreferenceByID returns any row by id
func (r *PreferenceRepository) GetUserPreferenceByID(ctx context.Context, id string) (*preference.Preference, error) {
	var model UserPreferenceModel

	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}

	return ModelToPreference(&model), nil
}

// UpsertUserPreference inserts when expectedVersion is 0, otherwise updates
// only while the stored version still equals expectedVersion.
func (r *PreferenceRepository) UpsertUserPreference(ctx context.Context, pref *preference.Preference, expectedVersion int64) error {
	if expectedVersion == 0 {
		return r.insert(ctx, pref)
	}

	result := r.db.WithContext(ctx).
		Model(&UserPreferenceModel{}).
		Where("id = ? AND version = ?", pref.ID, expectedVersion).
		Updates(map[string]interface{}{
			"confidence": pref.Confidence,
			"source":     pref.Source,
			"is_active":  pref.IsActive,
			"updated_at": pref.UpdatedAt,
			"version":    expectedVersion + 1,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&UserPreferenceModel{}).Where("id = ?", pref.ID).Count(&count).Error; err != nil {
			return translateError(err)
		}
		if count == 0 {
			return outbound.ErrNotFound
		}
		return outbound.ErrVersionConflict
	}

	pref.Version = expectedVersion + 1
	return nil
}

func (r *PreferenceRepository) insert(ctx context.Context, pref *preference.Preference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	model := PreferenceToModel(pref)
	model.Version = 1

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err)
	}

	pref.Version = 1
	return nil
}

// ListUserPreferences returns rows matching filter ordered by id
func (r *PreferenceRepository) ListUserPreferences(ctx context.Context, filter outbound.PreferenceFilter) ([]*preference.Preference, error) {
	var models []UserPreferenceModel

	query := r.db.WithContext(ctx).Where("user_id = ?", filter.UserID)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Order("id ASC").Find(&models).Error; err != nil {
		return nil, translateError(err)
	}

	prefs := make([]*preference.Preference, len(models))
	for i := range models {
		prefs[i] = ModelToPreference(&models[i])
	}

	return prefs, nil
}
