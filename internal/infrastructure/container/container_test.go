package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/infrastructure/cache"
	"github.com/alchemorsel/planner/internal/infrastructure/config"
	"github.com/alchemorsel/planner/internal/infrastructure/http/server"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/seed"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/planner/internal/ports/inbound"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	apperrors "github.com/alchemorsel/planner/pkg/errors"
	"github.com/alchemorsel/planner/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "planner",
			Version:     "test",
			Environment: "test",
			LogLevel:    "error",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   sqlite.MemoryPath,
			Seed:   true,
		},
		Cache: config.CacheConfig{
			Enabled:   true,
			Provider:  "memory",
			RecipeTTL: time.Minute,
		},
		Engine: config.EngineConfig{
			StorageTimeout:         5 * time.Second,
			AggregationConcurrency: 4,
		},
		Monitoring: config.MonitoringConfig{
			EnableMetrics:   true,
			OpsHost:         "127.0.0.1",
			OpsPort:         0,
			HealthCheckPath: "/health",
			ReadinessPath:   "/ready",
		},
	}
}

func startApp(t *testing.T, opts ...fx.Option) {
	t.Helper()

	app := fx.New(append([]fx.Option{fx.NopLogger, fx.Supply(testConfig())}, opts...)...)
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))

	t.Cleanup(func() {
		require.NoError(t, app.Stop(context.Background()))
	})
}

func TestCoreModule_ScalesSeededRecipe(t *testing.T) {
	var engine *Engine
	startApp(t, CoreModule, fx.Populate(&engine))

	servings := 6
	view, err := engine.Recipes.GetRecipe(context.Background(), seed.DemoRecipeID, &servings)
	require.NoError(t, err)
	require.NotNil(t, view.Scaled)
	require.Len(t, view.Scaled.Components, 2)

	base := view.Scaled.Components[0]
	assert.Equal(t, "Base", base.Component.Name)
	assert.Equal(t, 1.5, base.Factor)
	assert.Equal(t, 3.0, base.Component.Ingredients[0].Quantity)
	assert.Equal(t, 1.5, base.Component.Ingredients[1].Quantity)

	garnish := view.Scaled.Components[1]
	assert.False(t, garnish.Scaled)
	assert.Equal(t, 1.0, garnish.Component.Ingredients[0].Quantity)

	// Served from the cache on the second read
	again, err := engine.Recipes.GetRecipe(context.Background(), seed.DemoRecipeID, nil)
	require.NoError(t, err)
	assert.Nil(t, again.Scaled)
	assert.Equal(t, view.Recipe.ID(), again.Recipe.ID())
}

func TestCoreModule_AggregatesSeededPlan(t *testing.T) {
	var engine *Engine
	startApp(t, CoreModule, fx.Populate(&engine))

	start := mealplan.Day(time.Now().UTC())
	calendar, err := engine.MealPlans.Aggregate(context.Background(), inbound.AggregateQuery{
		MealPlanID: seed.DemoMealPlanID,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, 6),
	})
	require.NoError(t, err)

	assert.Len(t, calendar.Days, 7)
	assert.Equal(t, 7, calendar.Summary.Items)
	assert.Equal(t, 7, calendar.Summary.Resolved)
	assert.Equal(t, 20, calendar.Summary.Servings)
	assert.Empty(t, calendar.Failures())

	for _, total := range calendar.Summary.Ingredients {
		if total.Name == "carrot" && total.Unit == "pcs" {
			assert.InDelta(t, 10.0, total.Quantity, 1e-9)
		}
	}
}

func TestCoreModule_ShareRoundTrip(t *testing.T) {
	var engine *Engine
	startApp(t, CoreModule, fx.Populate(&engine))
	ctx := context.Background()

	link, err := engine.Shares.Issue(ctx, inbound.IssueShareCommand{
		RecipeID: seed.DemoRecipeID,
		UserID:   seed.DemoUserID,
	})
	require.NoError(t, err)

	view, err := engine.Shares.Resolve(ctx, link.ShareID)
	require.NoError(t, err)
	assert.Equal(t, seed.DemoRecipeID, view.Recipe.ID())

	require.NoError(t, engine.Shares.Revoke(ctx, link.ShareID, seed.DemoUserID))
	_, err = engine.Shares.Resolve(ctx, link.ShareID)
	assert.Error(t, err)
}

func TestCoreModule_DeletedRecipeIsUnresolved(t *testing.T) {
	var (
		engine  *Engine
		recipes outbound.RecipeRepository
		plans   outbound.MealPlanWriter
	)
	startApp(t, CoreModule, fx.Populate(&engine, &recipes, &plans))
	ctx := context.Background()

	rows := testutils.NewRecipeRowsBuilder().WithRandomComponents(2).Build()
	require.NoError(t, recipes.SaveRecipeTree(ctx, rows))

	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	plan := &mealplan.MealPlan{Name: "Cache check", UserID: rows.Recipe.CreatedBy, CreatedAt: day, UpdatedAt: day}
	_, err := plans.SaveMealPlan(ctx, plan, mealplan.Item{RecipeID: rows.Recipe.ID, Date: day, MealType: "lunch", Servings: 2})
	require.NoError(t, err)

	link, err := engine.Shares.Issue(ctx, inbound.IssueShareCommand{RecipeID: rows.Recipe.ID, UserID: rows.Recipe.CreatedBy})
	require.NoError(t, err)

	query := inbound.AggregateQuery{MealPlanID: plan.ID, StartDate: day, EndDate: day}
	before, err := engine.MealPlans.Aggregate(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 1, before.Summary.Resolved)
	assert.Equal(t, 0, before.Summary.Unresolved)

	require.NoError(t, recipes.DeleteRecipe(ctx, rows.Recipe.ID))

	after, err := engine.MealPlans.Aggregate(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Summary.Resolved)
	assert.Equal(t, 1, after.Summary.Unresolved)
	failures := after.Failures()
	require.Len(t, failures, 1)
	assert.True(t, apperrors.Is(failures[0].Err, apperrors.CodeUnresolvedRecipe))

	_, err = engine.Shares.Resolve(ctx, link.ShareID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestCoreModule_EditedRecipeIsReassembled(t *testing.T) {
	var (
		engine  *Engine
		recipes outbound.RecipeRepository
	)
	startApp(t, CoreModule, fx.Populate(&engine, &recipes))
	ctx := context.Background()

	_, err := engine.Recipes.GetRecipe(ctx, seed.DemoRecipeID, nil)
	require.NoError(t, err)

	broken := seed.SoupRows(time.Now().UTC())
	broken.Ingredients[1].Order = broken.Ingredients[0].Order
	require.NoError(t, recipes.SaveRecipeTree(ctx, broken))

	_, err = engine.Recipes.GetRecipe(ctx, seed.DemoRecipeID, nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeDataIntegrity))
}

func TestModule_ServesHealth(t *testing.T) {
	var srv *server.Server
	startApp(t, Module, fx.Populate(&srv))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database"`)
	assert.Contains(t, w.Body.String(), `"cache"`)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, server.MetricsPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "planner_")
}

func TestNewRecipeStore(t *testing.T) {
	cfg := testConfig()

	_, cached := NewRecipeStore(nil, nil, cfg, zap.NewNop()).(*cache.RecipeCache)
	assert.True(t, cached)

	cfg.Cache.Enabled = false
	_, cached = NewRecipeStore(nil, nil, cfg, zap.NewNop()).(*cache.RecipeCache)
	assert.False(t, cached)
}

func TestWatchModule_AppliesLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  log_level: error\n"), 0o600))

	var level zap.AtomicLevel
	startApp(t, LoggerModule, WatchModule(path), fx.Populate(&level))
	assert.Equal(t, zapcore.ErrorLevel, level.Level())

	require.NoError(t, os.WriteFile(path, []byte("app:\n  log_level: debug\n"), 0o600))

	assert.Eventually(t, func() bool {
		return level.Level() == zapcore.DebugLevel
	}, 5*time.Second, 20*time.Millisecond)
}
