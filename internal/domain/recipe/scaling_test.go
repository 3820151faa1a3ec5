package recipe_test

import (
	"testing"

	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/test/testutils"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleQuantity_Linearity(t *testing.T) {
	faker := gofakeit.New(42)

	for i := 0; i < 500; i++ {
		q := faker.Float64Range(0, 1000)
		base := faker.Number(1, 50)
		target := faker.Number(1, 50)

		got := recipe.ScaleQuantity(q, base, target)

		assert.InDelta(t, q*float64(target)/float64(base), got, 1e-9)
		assert.Equal(t, q, recipe.ScaleQuantity(q, base, base), "identity at base servings")
	}
}

func TestScaleComponent(t *testing.T) {
	component := func(base *int) recipe.Component {
		g := testutils.NewRecipeRowsBuilder().
			WithComponent("broth", base).
			WithIngredient("Carrot", 2, "whole").
			WithIngredient("Salt", 0.5, "tsp").
			BuildGraph()
		return g.Components()[0]
	}

	t.Run("ScalesEveryIngredient", func(t *testing.T) {
		sc, err := recipe.ScaleComponent(component(testutils.IntPtr(4)), 6)

		require.NoError(t, err)
		assert.True(t, sc.Scaled)
		assert.Equal(t, 1.5, sc.Factor)
		assert.Equal(t, 3.0, sc.Component.Ingredients[0].Quantity)
		assert.Equal(t, "whole", sc.Component.Ingredients[0].Unit)
		assert.Equal(t, 0.75, sc.Component.Ingredients[1].Quantity)
	})

	t.Run("NullBaseServingsPassesThrough", func(t *testing.T) {
		for _, target := range []int{1, 3, 100} {
			sc, err := recipe.ScaleComponent(component(nil), target)

			require.NoError(t, err)
			assert.False(t, sc.Scaled)
			assert.Equal(t, 2.0, sc.Component.Ingredients[0].Quantity)
			assert.Equal(t, 0.5, sc.Component.Ingredients[1].Quantity)
		}
	})

	t.Run("NonPositiveTarget", func(t *testing.T) {
		for _, target := range []int{0, -3} {
			_, err := recipe.ScaleComponent(component(testutils.IntPtr(4)), target)
			assert.ErrorIs(t, err, recipe.ErrInvalidTargetServings)
		}
		_, err := recipe.ScaleComponent(component(nil), 0)
		assert.ErrorIs(t, err, recipe.ErrInvalidTargetServings)
	})

	t.Run("NonPositiveBase", func(t *testing.T) {
		for _, base := range []int{0, -1} {
			_, err := recipe.ScaleComponent(component(testutils.IntPtr(base)), 2)
			assert.ErrorIs(t, err, recipe.ErrInvalidBaseServings)
		}
	})

	t.Run("DoesNotMutateInput", func(t *testing.T) {
		c := component(testutils.IntPtr(4))

		_, err := recipe.ScaleComponent(c, 8)

		require.NoError(t, err)
		assert.Equal(t, 2.0, c.Ingredients[0].Quantity)
	})

	t.Run("Deterministic", func(t *testing.T) {
		c := component(testutils.IntPtr(3))

		first, err := recipe.ScaleComponent(c, 7)
		require.NoError(t, err)
		second, err := recipe.ScaleComponent(c, 7)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestScaleGraph_UniformFactor(t *testing.T) {
	g := testutils.NewRecipeRowsBuilder().
		WithComponent("dough", testutils.IntPtr(2)).
		WithIngredient("flour", 100, "g").
		WithComponent("seasoning", nil).
		WithIngredient("salt", 1, "pinch").
		WithComponent("sauce", testutils.IntPtr(8)).
		WithIngredient("tomato", 4, "whole").
		BuildGraph()

	scaled, err := recipe.ScaleGraph(g, 4)

	require.NoError(t, err)
	assert.Equal(t, g.ID(), scaled.RecipeID)
	require.Len(t, scaled.Components, 3)
	assert.Equal(t, 200.0, scaled.Components[0].Component.Ingredients[0].Quantity)
	assert.Equal(t, 1.0, scaled.Components[1].Component.Ingredients[0].Quantity)
	assert.False(t, scaled.Components[1].Scaled)
	assert.Equal(t, 2.0, scaled.Components[2].Component.Ingredients[0].Quantity)
}

func TestScaleGraph_SoupScenario(t *testing.T) {
	g, err := recipe.Assemble(testutils.SoupRows())
	require.NoError(t, err)

	scaled, err := recipe.ScaleGraph(g, 6)

	require.NoError(t, err)
	carrot := scaled.Components[0].Component.Ingredients[0]
	assert.Equal(t, "Carrot", carrot.Name)
	assert.Equal(t, "whole", carrot.Unit)
	assert.Equal(t, 3.0, carrot.Quantity)
}
