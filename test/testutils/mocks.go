// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/domain/share"
	"github.com/alchemorsel/planner/internal/domain/shared"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockRecipeStore provides a mock implementation of RecipeStore
type MockRecipeStore struct {
	mock.Mock
}

// GetRecipeTree returns the configured rows
func (m *MockRecipeStore) GetRecipeTree(ctx context.Context, recipeID string) (*recipe.Rows, error) {
	args := m.Called(ctx, recipeID)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Rows), nil
}

// SaveRecipeTree records the write
func (m *MockRecipeStore) SaveRecipeTree(ctx context.Context, rows recipe.Rows) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

// DeleteRecipe records the delete
func (m *MockRecipeStore) DeleteRecipe(ctx context.Context, recipeID string) error {
	args := m.Called(ctx, recipeID)
	return args.Error(0)
}

// MockShareStore provides a mock implementation of ShareStore
type MockShareStore struct {
	mock.Mock
}

// GetSharedRecipeByToken returns the configured row
func (m *MockShareStore) GetSharedRecipeByToken(ctx context.Context, shareID string) (*share.SharedRecipe, error) {
	args := m.Called(ctx, shareID)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*share.SharedRecipe), nil
}

// InsertSharedRecipe records the insert
func (m *MockShareStore) InsertSharedRecipe(ctx context.Context, row *share.SharedRecipe) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

// DeleteSharedRecipe records the delete
func (m *MockShareStore) DeleteSharedRecipe(ctx context.Context, shareID string) error {
	args := m.Called(ctx, shareID)
	return args.Error(0)
}

// ListSharedRecipesByRecipe returns the configured rows
func (m *MockShareStore) ListSharedRecipesByRecipe(ctx context.Context, recipeID string) ([]*share.SharedRecipe, error) {
	args := m.Called(ctx, recipeID)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*share.SharedRecipe), nil
}

// MockMealPlanStore provides a mock implementation of MealPlanStore
type MockMealPlanStore struct {
	mock.Mock
}

// GetMealPlan returns the configured plan
func (m *MockMealPlanStore) GetMealPlan(ctx context.Context, mealPlanID string) (*mealplan.MealPlan, error) {
	args := m.Called(ctx, mealPlanID)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mealplan.MealPlan), nil
}

// GetMealPlanItems returns the configured items
func (m *MockMealPlanStore) GetMealPlanItems(ctx context.Context, mealPlanID string, from, to time.Time) ([]mealplan.Item, error) {
	args := m.Called(ctx, mealPlanID, from, to)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mealplan.Item), nil
}

// MockPreferenceStore provides a mock implementation of PreferenceStore
type MockPreferenceStore struct {
	mock.Mock
}

// GetUserPreference returns the configured row
func (m *MockPreferenceStore) GetUserPreference(ctx context.Context, key preference.Key) (*preference.Preference, error) {
	args := m.Called(ctx, key)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*preference.Preference), nil
}

// GetUserPreferenceByID returns the configured row
func (m *MockPreferenceStore) GetUserPreferenceByID(ctx context.Context, id string) (*preference.Preference, error) {
	args := m.Called(ctx, id)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*preference.Preference), nil
}

// UpsertUserPreference records the write
func (m *MockPreferenceStore) UpsertUserPreference(ctx context.Context, pref *preference.Preference, expectedVersion int64) error {
	args := m.Called(ctx, pref, expectedVersion)
	return args.Error(0)
}

// ListUserPreferences returns the configured rows
func (m *MockPreferenceStore) ListUserPreferences(ctx context.Context, filter outbound.PreferenceFilter) ([]*preference.Preference, error) {
	args := m.Called(ctx, filter)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*preference.Preference), nil
}

// RecordingPublisher collects published events
type RecordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

// Publish stores the events
func (p *RecordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

// Events returns the names of everything published so far
func (p *RecordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.EventName())
	}
	return names
}

// FakeClock is a settable clock
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock pinned at now
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the pinned time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set pins the clock at t
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Clock returns c as a shared.Clock
func (c *FakeClock) Clock() shared.Clock {
	return c.Now
}

// BlockingRecipeStore never answers until ctx is done
type BlockingRecipeStore struct{}

// GetRecipeTree waits for ctx
func (BlockingRecipeStore) GetRecipeTree(ctx context.Context, recipeID string) (*recipe.Rows, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
