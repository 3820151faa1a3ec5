package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/domain/share"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/google/uuid"
)

// Store keeps every entity in maps. It implements all storage ports with the
// same uniqueness and version semantics as the SQL stores.
type Store struct {
	mu          sync.RWMutex
	recipes     map[string]recipe.Rows
	shares      map[string]share.SharedRecipe
	plans       map[string]mealplan.MealPlan
	items       map[string][]mealplan.Item
	preferences map[string]preference.Preference
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		recipes:     make(map[string]recipe.Rows),
		shares:      make(map[string]share.SharedRecipe),
		plans:       make(map[string]mealplan.MealPlan),
		items:       make(map[string][]mealplan.Item),
		preferences: make(map[string]preference.Preference),
	}
}

var (
	_ outbound.RecipeRepository = (*Store)(nil)
	_ outbound.ShareStore       = (*Store)(nil)
	_ outbound.MealPlanStore    = (*Store)(nil)
	_ outbound.MealPlanWriter   = (*Store)(nil)
	_ outbound.PreferenceStore  = (*Store)(nil)
)

// PutRecipe stores rows under rows.Recipe.ID
func (s *Store) PutRecipe(rows recipe.Rows) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[rows.Recipe.ID] = copyRows(rows)
}

// SaveRecipeTree replaces the recipe with rows.Recipe.ID
func (s *Store) SaveRecipeTree(ctx context.Context, rows recipe.Rows) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rows.Recipe.ID == "" {
		rows.Recipe.ID = uuid.NewString()
	}
	s.PutRecipe(rows)
	return nil
}

// DeleteRecipe removes a recipe and leaves any references to it dangling
func (s *Store) DeleteRecipe(ctx context.Context, recipeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[recipeID]; !ok {
		return outbound.ErrNotFound
	}
	delete(s.recipes, recipeID)
	return nil
}

// PutMealPlan stores a plan header
func (s *Store) PutMealPlan(plan mealplan.MealPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
}

// AddMealPlanItems appends items to their plans
func (s *Store) AddMealPlanItems(items ...mealplan.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.items[item.MealPlanID] = append(s.items[item.MealPlanID], item)
	}
}

// SaveMealPlan stores the plan header and appends items with generated ids
func (s *Store) SaveMealPlan(ctx context.Context, plan *mealplan.MealPlan, items ...mealplan.Item) ([]mealplan.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}

	stored := make([]mealplan.Item, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.MealPlanID = plan.ID
		stored[i] = item
	}

	s.PutMealPlan(*plan)
	s.AddMealPlanItems(stored...)
	return stored, nil
}

// GetRecipeTree returns a copy of the stored rows
func (s *Store) GetRecipeTree(ctx context.Context, recipeID string) (*recipe.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.recipes[recipeID]
	if !ok {
		return nil, outbound.ErrNotFound
	}
	out := copyRows(rows)
	return &out, nil
}

// GetSharedRecipeByToken finds a share by its public token
func (s *Store) GetSharedRecipeByToken(ctx context.Context, shareID string) (*share.SharedRecipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.shares[shareID]
	if !ok {
		return nil, outbound.ErrNotFound
	}
	return &row, nil
}

// InsertSharedRecipe stores a new share; the token must be unused
func (s *Store) InsertSharedRecipe(ctx context.Context, row *share.SharedRecipe) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shares[row.ShareID]; exists {
		return outbound.ErrUniqueViolation
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	s.shares[row.ShareID] = *row
	return nil
}

// DeleteSharedRecipe removes a share by token
func (s *Store) DeleteSharedRecipe(ctx context.Context, shareID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shares[shareID]; !exists {
		return outbound.ErrNotFound
	}
	delete(s.shares, shareID)
	return nil
}

// ListSharedRecipesByRecipe returns the shares of a recipe, oldest first
func (s *Store) ListSharedRecipesByRecipe(ctx context.Context, recipeID string) ([]*share.SharedRecipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*share.SharedRecipe{}
	for _, row := range s.shares {
		if row.RecipeID == recipeID {
			row := row
			out = append(out, &row)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

// GetMealPlan returns a plan header
func (s *Store) GetMealPlan(ctx context.Context, mealPlanID string) (*mealplan.MealPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[mealPlanID]
	if !ok {
		return nil, outbound.ErrNotFound
	}
	return &plan, nil
}

// GetMealPlanItems returns the plan's items with from <= date < to
func (s *Store) GetMealPlanItems(ctx context.Context, mealPlanID string, from, to time.Time) ([]mealplan.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []mealplan.Item{}
	for _, item := range s.items[mealPlanID] {
		if !item.Date.Before(from) && item.Date.Before(to) {
			out = append(out, item)
		}
	}
	return out, nil
}

// GetUserPreference returns the active row for key
func (s *Store) GetUserPreference(ctx context.Context, key preference.Key) (*preference.Preference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p := s.activeLocked(key); p != nil {
		return p, nil
	}
	return nil, outbound.ErrNotFound
}

// GetUserPreferenceByID returns any row by id
func (s *Store) GetUserPreferenceByID(ctx context.Context, id string) (*preference.Preference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.preferences[id]
	if !ok {
		return nil, outbound.ErrNotFound
	}
	return clonePreference(p), nil
}

// UpsertUserPreference inserts (expectedVersion 0) or compare-and-swaps on
// version. At most one active row may hold a key.
func (s *Store) UpsertUserPreference(ctx context.Context, pref *preference.Preference, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if pref.IsActive {
		if active := s.activeLocked(pref.Key()); active != nil && active.ID != pref.ID {
			return outbound.ErrUniqueViolation
		}
	}

	if expectedVersion == 0 {
		if pref.ID == "" {
			pref.ID = uuid.NewString()
		}
		if _, exists := s.preferences[pref.ID]; exists {
			return outbound.ErrUniqueViolation
		}
		pref.Version = 1
		s.preferences[pref.ID] = *clonePreference(*pref)
		return nil
	}

	stored, ok := s.preferences[pref.ID]
	if !ok {
		return outbound.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return outbound.ErrVersionConflict
	}
	pref.Version = expectedVersion + 1
	pref.CreatedAt = stored.CreatedAt
	s.preferences[pref.ID] = *clonePreference(*pref)
	return nil
}

// ListUserPreferences returns rows matching filter ordered by id
func (s *Store) ListUserPreferences(ctx context.Context, filter outbound.PreferenceFilter) ([]*preference.Preference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*preference.Preference{}
	for _, p := range s.preferences {
		if p.UserID != filter.UserID {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, clonePreference(p))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (s *Store) activeLocked(key preference.Key) *preference.Preference {
	for _, p := range s.preferences {
		if p.IsActive && p.Key() == key {
			return clonePreference(p)
		}
	}
	return nil
}

// clonePreference copies the row fields without pending events
func clonePreference(p preference.Preference) *preference.Preference {
	return &preference.Preference{
		ID:         p.ID,
		UserID:     p.UserID,
		Category:   p.Category,
		Preference: p.Preference,
		Context:    p.Context,
		Confidence: p.Confidence,
		Source:     p.Source,
		IsActive:   p.IsActive,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Version:    p.Version,
	}
}

func copyRows(rows recipe.Rows) recipe.Rows {
	out := recipe.Rows{Recipe: rows.Recipe}
	out.Components = append(out.Components, rows.Components...)
	out.Ingredients = append(out.Ingredients, rows.Ingredients...)
	out.Instructions = append(out.Instructions, rows.Instructions...)
	return out
}
