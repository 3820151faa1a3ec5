package recipe_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	apprecipe "github.com/alchemorsel/planner/internal/application/recipe"
	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/planner/pkg/errors"
	"github.com/alchemorsel/planner/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingMetrics struct {
	operations []string
	outcomes   []string
}

func (m *recordingMetrics) ObserveOperation(operation, outcome string, _ time.Duration) {
	m.operations = append(m.operations, operation)
	m.outcomes = append(m.outcomes, outcome)
}
func (m *recordingMetrics) ObserveAggregation(int, int, int)  {}
func (m *recordingMetrics) ObserveConfidence(string, float64) {}

func TestGetRecipe(t *testing.T) {
	store := memory.NewStore()
	soup := testutils.SoupRows()
	store.PutRecipe(soup)
	metrics := &recordingMetrics{}
	service := apprecipe.NewRecipeService(store, metrics, time.Second, zap.NewNop())

	t.Run("Unscaled", func(t *testing.T) {
		view, err := service.GetRecipe(context.Background(), soup.Recipe.ID, nil)

		require.NoError(t, err)
		assert.Equal(t, "Soup", view.Recipe.Name())
		assert.Nil(t, view.Scaled)
	})

	t.Run("Scaled", func(t *testing.T) {
		view, err := service.GetRecipe(context.Background(), soup.Recipe.ID, testutils.IntPtr(6))

		require.NoError(t, err)
		require.NotNil(t, view.Scaled)
		assert.Equal(t, 3.0, view.Scaled.Components[0].Component.Ingredients[0].Quantity)
	})

	t.Run("InvalidServings", func(t *testing.T) {
		_, err := service.GetRecipe(context.Background(), soup.Recipe.ID, testutils.IntPtr(0))

		assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := service.GetRecipe(context.Background(), "missing", nil)

		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})

	assert.Equal(t, []string{"OK", "OK", "INVALID_ARGUMENT", "NOT_FOUND"}, metrics.outcomes)
}

func TestGetRecipe_IntegrityErrors(t *testing.T) {
	store := memory.NewStore()
	duplicate := testutils.NewRecipeRowsBuilder().
		WithComponentAt("a", nil, 1).
		WithComponentAt("b", nil, 1).
		Build()
	store.PutRecipe(duplicate)
	badBase := testutils.NewRecipeRowsBuilder().
		WithComponent("a", testutils.IntPtr(-2)).
		WithIngredient("x", 1, "g").
		Build()
	store.PutRecipe(badBase)
	service := apprecipe.NewRecipeService(store, nil, time.Second, zap.NewNop())

	_, err := service.GetRecipe(context.Background(), duplicate.Recipe.ID, nil)
	assert.True(t, errors.Is(err, errors.CodeDataIntegrity))
	assert.True(t, stderrors.Is(err, recipe.ErrDuplicateOrder))

	_, err = service.GetRecipe(context.Background(), badBase.Recipe.ID, nil)
	assert.NoError(t, err, "unscaled views do not touch base servings")

	_, err = service.GetRecipe(context.Background(), badBase.Recipe.ID, testutils.IntPtr(2))
	assert.True(t, errors.Is(err, errors.CodeInvalidRecipeState))
}

func TestGetRecipe_StorageFailures(t *testing.T) {
	store := &testutils.MockRecipeStore{}
	store.On("GetRecipeTree", mock.Anything, "broken").Return(nil, stderrors.New("connection reset"))

	service := apprecipe.NewRecipeService(store, nil, time.Second, zap.NewNop())
	_, err := service.GetRecipe(context.Background(), "broken", nil)
	assert.True(t, errors.Is(err, errors.CodeStorage))

	slow := apprecipe.NewRecipeService(testutils.BlockingRecipeStore{}, nil, 10*time.Millisecond, zap.NewNop())
	_, err = slow.GetRecipe(context.Background(), "any", nil)
	assert.True(t, errors.Is(err, errors.CodeStorageTimeout))
}
