//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/alchemorsel/planner/internal/domain/mealplan"
	gormstore "github.com/alchemorsel/planner/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/postgres"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/test/testutils"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// PostgresTestSuite runs the GORM stores against a real PostgreSQL with the
// golang-migrate schema.
type PostgresTestSuite struct {
	suite.Suite
	ctx         context.Context
	cm          *postgres.ConnectionManager
	migrator    *migrations.Migrator
	recipes     *gormstore.RecipeRepository
	shares      *gormstore.ShareRepository
	plans       *gormstore.MealPlanRepository
	preferences *gormstore.PreferenceRepository
}

func (suite *PostgresTestSuite) SetupSuite() {
	if testing.Short() {
		suite.T().Skip("skipping postgres integration test in short mode")
	}

	cfg := testutils.StartPostgres(suite.T())
	suite.ctx = context.Background()

	cm, err := postgres.NewConnectionManager(cfg, zap.NewNop())
	suite.Require().NoError(err)
	suite.cm = cm

	migrator, err := migrations.New(cm.SQLDB(), cfg.Database.Database, zap.NewNop())
	suite.Require().NoError(err)
	suite.Require().NoError(migrator.Up())
	suite.migrator = migrator

	db := cm.GetDB()
	suite.recipes = gormstore.NewRecipeRepository(db)
	suite.shares = gormstore.NewShareRepository(db)
	suite.plans = gormstore.NewMealPlanRepository(db)
	suite.preferences = gormstore.NewPreferenceRepository(db)
}

func (suite *PostgresTestSuite) TearDownSuite() {
	if suite.cm != nil {
		suite.NoError(suite.cm.Close())
	}
}

func (suite *PostgresTestSuite) TestHealthCheck() {
	suite.NoError(suite.cm.HealthCheck(suite.ctx))

	version, dirty, err := suite.migrator.Version()
	suite.Require().NoError(err)
	suite.False(dirty)
	suite.Equal(uint(1), version)
}

func (suite *PostgresTestSuite) TestRecipeTree_RoundTrip() {
	rows := testutils.NewRecipeRowsBuilder().
		WithComponent("Base", testutils.IntPtr(4)).
		WithIngredient("carrot", 2, "pcs").
		WithInstruction("Sweat the carrots").
		WithComponent("Garnish", nil).
		WithIngredient("parsley", 1, "bunch").
		Build()
	suite.Require().NoError(suite.recipes.SaveRecipeTree(suite.ctx, rows))

	loaded, err := suite.recipes.GetRecipeTree(suite.ctx, rows.Recipe.ID)
	suite.Require().NoError(err)
	suite.Len(loaded.Components, 2)
	suite.Len(loaded.Ingredients, 2)
	suite.Len(loaded.Instructions, 1)
}

func (suite *PostgresTestSuite) TestShares_DuplicateTokenIsUniqueViolation() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	first := testutils.NewShareFactory().Share("recipe-1", "user-1", now, nil)
	suite.Require().NoError(suite.shares.InsertSharedRecipe(suite.ctx, first))

	second := testutils.NewShareFactory().Share("recipe-2", "user-2", now, nil)
	second.ShareID = first.ShareID
	suite.ErrorIs(suite.shares.InsertSharedRecipe(suite.ctx, second), outbound.ErrUniqueViolation)
}

func (suite *PostgresTestSuite) TestMealPlan_ItemsHalfOpenRange() {
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	plan := &mealplan.MealPlan{ID: "plan-pg", Name: "Week", UserID: "user-1", CreatedAt: day, UpdatedAt: day}
	_, err := suite.plans.SaveMealPlan(suite.ctx, plan,
		mealplan.Item{RecipeID: "recipe-1", Date: day, MealType: "dinner", Servings: 2},
		mealplan.Item{RecipeID: "recipe-1", Date: day.AddDate(0, 0, 1), MealType: "lunch", Servings: 3},
	)
	suite.Require().NoError(err)

	items, err := suite.plans.GetMealPlanItems(suite.ctx, plan.ID, day, day.AddDate(0, 0, 1))
	suite.Require().NoError(err)
	suite.Require().Len(items, 1)
	suite.Equal("dinner", items[0].MealType)
}

func (suite *PostgresTestSuite) TestPreferences_PartialUniqueIndex() {
	factory := testutils.NewPreferenceFactory(21)
	key := factory.Key("user-pg")

	first := factory.Row(key, 0.4)
	first.ID = ""
	suite.Require().NoError(suite.preferences.UpsertUserPreference(suite.ctx, first, 0))

	second := factory.Row(key, 0.6)
	second.ID = ""
	suite.ErrorIs(suite.preferences.UpsertUserPreference(suite.ctx, second, 0), outbound.ErrUniqueViolation)

	first.IsActive = false
	suite.Require().NoError(suite.preferences.UpsertUserPreference(suite.ctx, first, first.Version))

	second.ID = ""
	suite.Require().NoError(suite.preferences.UpsertUserPreference(suite.ctx, second, 0))

	active, err := suite.preferences.ListUserPreferences(suite.ctx, outbound.PreferenceFilter{
		UserID:     key.UserID,
		ActiveOnly: true,
	})
	suite.Require().NoError(err)
	suite.Len(active, 1)
	suite.Equal(second.ID, active[0].ID)
	suite.InDelta(0.6, active[0].Confidence, 1e-12)
}

func TestPostgresTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresTestSuite))
}
