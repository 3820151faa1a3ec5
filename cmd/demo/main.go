// Package main seeds an in-memory database and walks through the engine:
// a meal plan calendar, a scaled recipe, a share link round trip and a
// preference merge. Every result is printed as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/internal/infrastructure/config"
	"github.com/alchemorsel/planner/internal/infrastructure/container"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/seed"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/planner/internal/ports/inbound"
	"go.uber.org/fx"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.App.LogLevel = "warn"
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = sqlite.MemoryPath
	cfg.Database.Seed = true
	cfg.Cache.Provider = "memory"
	cfg.Monitoring.EnableTracing = false

	var engine *container.Engine
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		container.CoreModule,
		fx.Populate(&engine),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start demo: %v", err)
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			log.Printf("Failed to stop demo: %v", err)
		}
	}()

	if err := run(ctx, engine); err != nil {
		log.Printf("Demo failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, engine *container.Engine) error {
	start := mealplan.Day(time.Now().UTC())
	calendar, err := engine.MealPlans.Aggregate(ctx, inbound.AggregateQuery{
		MealPlanID: seed.DemoMealPlanID,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, 6),
	})
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	printJSON("meal_plan", calendar)

	servings := 6
	view, err := engine.Recipes.GetRecipe(ctx, seed.DemoRecipeID, &servings)
	if err != nil {
		return fmt.Errorf("get recipe: %w", err)
	}
	printJSON("scaled_recipe", view)

	ttl := 24 * time.Hour
	link, err := engine.Shares.Issue(ctx, inbound.IssueShareCommand{
		RecipeID: seed.DemoRecipeID,
		UserID:   seed.DemoUserID,
		TTL:      &ttl,
	})
	if err != nil {
		return fmt.Errorf("issue share: %w", err)
	}
	resolved, err := engine.Shares.Resolve(ctx, link.ShareID)
	if err != nil {
		return fmt.Errorf("resolve share: %w", err)
	}
	printJSON("share_resolved", resolved)

	links, err := engine.Shares.ListForRecipe(ctx, seed.DemoRecipeID, seed.DemoUserID)
	if err != nil {
		return fmt.Errorf("list shares: %w", err)
	}
	printJSON("share_links", links)

	if err := engine.Shares.Revoke(ctx, link.ShareID, seed.DemoUserID); err != nil {
		return fmt.Errorf("revoke share: %w", err)
	}
	if _, err := engine.Shares.Resolve(ctx, link.ShareID); err != nil {
		printJSON("share_after_revoke", map[string]string{"error": err.Error()})
	}

	signals := []inbound.MergePreferenceCommand{
		{Weight: 0.6, Polarity: preference.PolarityPositive},
		{Weight: 0.6, Polarity: preference.PolarityPositive},
		{Weight: 0.3, Polarity: preference.PolarityNegative},
	}
	results := make([]*inbound.MergeResult, 0, len(signals))
	for _, s := range signals {
		s.UserID = seed.DemoUserID
		s.Category = "cuisine"
		s.Preference = "italian"
		s.Source = "demo"
		result, err := engine.Preferences.Merge(ctx, s)
		if err != nil {
			return fmt.Errorf("merge preference: %w", err)
		}
		results = append(results, result)
	}
	printJSON("preference_merges", results)

	return nil
}

func printJSON(label string, v interface{}) {
	data, err := json.MarshalIndent(map[string]interface{}{label: v}, "", "  ")
	if err != nil {
		log.Printf("Failed to encode %s: %v", label, err)
		return
	}
	fmt.Println(string(data))
}
