// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"time"

	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/domain/share"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// DurationPtr returns a pointer to d
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// RecipeRowsBuilder provides a fluent interface for building stored recipe rows
type RecipeRowsBuilder struct {
	faker *gofakeit.Faker
	rows  recipe.Rows
	last  string
}

// NewRecipeRowsBuilder creates a builder for a recipe header with no components
func NewRecipeRowsBuilder() *RecipeRowsBuilder {
	faker := gofakeit.New(time.Now().UnixNano())
	now := time.Now().UTC().Truncate(time.Second)

	return &RecipeRowsBuilder{
		faker: faker,
		rows: recipe.Rows{
			Recipe: recipe.RecipeRow{
				ID:          uuid.NewString(),
				Name:        faker.Dessert(),
				Description: faker.Sentence(8),
				CreatedBy:   uuid.NewString(),
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		},
	}
}

// WithID sets the recipe id
func (b *RecipeRowsBuilder) WithID(id string) *RecipeRowsBuilder {
	b.rows.Recipe.ID = id
	for i := range b.rows.Components {
		b.rows.Components[i].RecipeID = id
	}
	return b
}

// WithName sets the recipe name
func (b *RecipeRowsBuilder) WithName(name string) *RecipeRowsBuilder {
	b.rows.Recipe.Name = name
	return b
}

// WithOwner sets the creating user
func (b *RecipeRowsBuilder) WithOwner(userID string) *RecipeRowsBuilder {
	b.rows.Recipe.CreatedBy = userID
	return b
}

// WithComponent appends a component at the next order position. Following
// WithIngredient and WithInstruction calls attach to it.
func (b *RecipeRowsBuilder) WithComponent(name string, baseServings *int) *RecipeRowsBuilder {
	return b.WithComponentAt(name, baseServings, len(b.rows.Components)+1)
}

// WithComponentAt appends a component with an explicit order value
func (b *RecipeRowsBuilder) WithComponentAt(name string, baseServings *int, order int) *RecipeRowsBuilder {
	id := uuid.NewString()
	b.rows.Components = append(b.rows.Components, recipe.ComponentRow{
		ID:           id,
		RecipeID:     b.rows.Recipe.ID,
		Name:         name,
		Storeable:    b.faker.Bool(),
		BaseServings: baseServings,
		Order:        order,
	})
	b.last = id
	return b
}

// WithIngredient appends an ingredient to the last component
func (b *RecipeRowsBuilder) WithIngredient(name string, quantity float64, unit string) *RecipeRowsBuilder {
	return b.WithIngredientAt(name, quantity, unit, b.nextIngredientOrder())
}

// WithIngredientAt appends an ingredient with an explicit order value
func (b *RecipeRowsBuilder) WithIngredientAt(name string, quantity float64, unit string, order int) *RecipeRowsBuilder {
	b.ensureComponent()
	b.rows.Ingredients = append(b.rows.Ingredients, recipe.IngredientRow{
		ID:          uuid.NewString(),
		ComponentID: b.last,
		Name:        name,
		Quantity:    quantity,
		Unit:        unit,
		Order:       order,
	})
	return b
}

// WithInstruction appends an instruction to the last component
func (b *RecipeRowsBuilder) WithInstruction(text string) *RecipeRowsBuilder {
	return b.WithInstructionAt(text, b.nextInstructionOrder())
}

// WithInstructionAt appends an instruction with an explicit order value
func (b *RecipeRowsBuilder) WithInstructionAt(text string, order int) *RecipeRowsBuilder {
	b.ensureComponent()
	b.rows.Instructions = append(b.rows.Instructions, recipe.InstructionRow{
		ID:          uuid.NewString(),
		ComponentID: b.last,
		Text:        text,
		Order:       order,
	})
	return b
}

// WithRandomComponents appends n scaling-aware components with fake content
func (b *RecipeRowsBuilder) WithRandomComponents(n int) *RecipeRowsBuilder {
	for i := 0; i < n; i++ {
		b.WithComponent(b.faker.Noun(), IntPtr(b.faker.Number(1, 8)))
		for j := 0; j < b.faker.Number(1, 4); j++ {
			b.WithIngredient(b.faker.Fruit(), b.faker.Float64Range(0.5, 500), b.faker.RandomString([]string{"g", "ml", "cup", "tbsp", "whole"}))
		}
		b.WithInstruction(b.faker.Sentence(6))
	}
	return b
}

// Build returns a copy of the rows
func (b *RecipeRowsBuilder) Build() recipe.Rows {
	out := recipe.Rows{Recipe: b.rows.Recipe}
	out.Components = append(out.Components, b.rows.Components...)
	out.Ingredients = append(out.Ingredients, b.rows.Ingredients...)
	out.Instructions = append(out.Instructions, b.rows.Instructions...)
	return out
}

// BuildGraph assembles the rows and panics on integrity errors
func (b *RecipeRowsBuilder) BuildGraph() *recipe.Graph {
	g, err := recipe.Assemble(b.Build())
	if err != nil {
		panic(fmt.Sprintf("testutils: assemble recipe: %v", err))
	}
	return g
}

func (b *RecipeRowsBuilder) ensureComponent() {
	if b.last == "" {
		b.WithComponent(b.faker.Noun(), IntPtr(4))
	}
}

func (b *RecipeRowsBuilder) nextIngredientOrder() int {
	n := 1
	for _, row := range b.rows.Ingredients {
		if row.ComponentID == b.last {
			n++
		}
	}
	return n
}

func (b *RecipeRowsBuilder) nextInstructionOrder() int {
	n := 1
	for _, row := range b.rows.Instructions {
		if row.ComponentID == b.last {
			n++
		}
	}
	return n
}

// SoupRows returns the reference recipe: one component for 4 servings with
// 2 whole carrots.
func SoupRows() recipe.Rows {
	return NewRecipeRowsBuilder().
		WithName("Soup").
		WithComponent("Broth", IntPtr(4)).
		WithIngredient("Carrot", 2, "whole").
		WithInstruction("Simmer the carrots").
		Build()
}

// MealPlanFactory creates meal-plan items
type MealPlanFactory struct {
	faker *gofakeit.Faker
}

// NewMealPlanFactory creates a new meal plan factory with seeded faker
func NewMealPlanFactory(seed int64) *MealPlanFactory {
	return &MealPlanFactory{faker: gofakeit.New(seed)}
}

// Item creates a planned item for recipeID on date
func (f *MealPlanFactory) Item(mealPlanID, recipeID string, date time.Time, servings int) mealplan.Item {
	return mealplan.Item{
		ID:         uuid.NewString(),
		MealPlanID: mealPlanID,
		RecipeID:   recipeID,
		Date:       date,
		MealType:   f.faker.RandomString([]string{"breakfast", "lunch", "dinner", "snack"}),
		Servings:   servings,
		Notes:      f.faker.Sentence(4),
	}
}

// Plan creates a meal plan header
func (f *MealPlanFactory) Plan(userID string) mealplan.MealPlan {
	now := time.Now().UTC().Truncate(time.Second)
	return mealplan.MealPlan{
		ID:        uuid.NewString(),
		Name:      f.faker.Sentence(2),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PreferenceFactory creates preference signals and rows
type PreferenceFactory struct {
	faker *gofakeit.Faker
}

// NewPreferenceFactory creates a new preference factory with seeded faker
func NewPreferenceFactory(seed int64) *PreferenceFactory {
	return &PreferenceFactory{faker: gofakeit.New(seed)}
}

// Key creates a random natural key for userID
func (f *PreferenceFactory) Key(userID string) preference.Key {
	return preference.Key{
		UserID:     userID,
		Category:   f.faker.RandomString([]string{"cuisine", "ingredient-dislike", "diet"}),
		Preference: f.faker.Fruit(),
	}
}

// Signal creates a signal for key
func (f *PreferenceFactory) Signal(key preference.Key, weight float64, polarity preference.Polarity) preference.Signal {
	return preference.Signal{
		Key:      key,
		Weight:   weight,
		Polarity: polarity,
		Source:   f.faker.RandomString([]string{"explicit", "behavior", "import"}),
	}
}

// Row creates a stored active preference with confidence c
func (f *PreferenceFactory) Row(key preference.Key, c float64) *preference.Preference {
	created := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Second)
	return &preference.Preference{
		ID:         uuid.NewString(),
		UserID:     key.UserID,
		Category:   key.Category,
		Preference: key.Preference,
		Context:    key.Context,
		Confidence: c,
		Source:     "explicit",
		IsActive:   true,
		CreatedAt:  created,
		UpdatedAt:  created,
		Version:    1,
	}
}

// ShareFactory creates share rows
type ShareFactory struct{}

// NewShareFactory creates a share factory
func NewShareFactory() *ShareFactory {
	return &ShareFactory{}
}

// Share creates a share row for recipeID issued by userID at now
func (f *ShareFactory) Share(recipeID, userID string, now time.Time, ttl *time.Duration) *share.SharedRecipe {
	token, err := share.GenerateToken()
	if err != nil {
		panic(fmt.Sprintf("testutils: generate token: %v", err))
	}
	s, err := share.New(recipeID, userID, token, now, ttl)
	if err != nil {
		panic(fmt.Sprintf("testutils: new share: %v", err))
	}
	s.ID = uuid.NewString()
	return s
}
