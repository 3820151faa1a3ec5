// Package mealplan provides the application layer for meal-plan calendars
package mealplan

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/alchemorsel/planner/internal/application/common"
	"github.com/alchemorsel/planner/internal/domain/mealplan"
	"github.com/alchemorsel/planner/internal/domain/recipe"
	"github.com/alchemorsel/planner/internal/ports/inbound"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel recipe resolution when unset
const DefaultConcurrency = 8

// Config tunes the aggregator
type Config struct {
	StorageTimeout time.Duration
	Concurrency    int
}

// MealPlanService implements the meal-plan aggregation use case
type MealPlanService struct {
	plans       outbound.MealPlanStore
	recipes     common.RecipeLoader
	validator   *common.Validator
	inst        common.Instrumentation
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
}

// NewMealPlanService creates a new meal plan service
func NewMealPlanService(
	plans outbound.MealPlanStore,
	recipes outbound.RecipeStore,
	metrics outbound.EngineMetrics,
	cfg Config,
	logger *zap.Logger,
) *MealPlanService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &MealPlanService{
		plans:       plans,
		recipes:     common.NewRecipeLoader(recipes, cfg.StorageTimeout),
		validator:   common.NewValidator(),
		inst:        common.NewInstrumentation("planner/mealplan", metrics),
		timeout:     cfg.StorageTimeout,
		concurrency: cfg.Concurrency,
		logger:      logger.Named("mealplan-service"),
	}
}

var _ inbound.MealPlanService = (*MealPlanService)(nil)

// Aggregate builds the calendar of a meal plan over an inclusive date range.
// Items whose recipe cannot be used are reported per item; the call itself
// fails only on bad input, on failing to list the items, or on cancellation,
// in which case no partial calendar is returned.
func (s *MealPlanService) Aggregate(ctx context.Context, query inbound.AggregateQuery) (_ *mealplan.Calendar, err error) {
	ctx, finish := s.inst.Start(ctx, "mealplan.aggregate", attribute.String("meal_plan_id", query.MealPlanID))
	defer func() { finish(err) }()

	if verr := s.validator.Struct(query); verr != nil {
		return nil, verr
	}
	if query.StartDate.IsZero() || query.EndDate.IsZero() {
		return nil, errors.NewInvalidArgumentError("date_range", "start and end dates are required")
	}

	rng, rerr := mealplan.NewDateRange(query.StartDate, query.EndDate)
	if rerr != nil {
		return nil, errors.NewInvalidRangeError(
			query.StartDate.Format(mealplan.DateLayout),
			query.EndDate.Format(mealplan.DateLayout),
		).WithCause(rerr)
	}

	if err := s.ensurePlan(ctx, query.MealPlanID); err != nil {
		return nil, err
	}

	from, to := rng.Bounds()
	var items []mealplan.Item
	err = common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		items, err = s.plans.GetMealPlanItems(ctx, query.MealPlanID, from, to)
		return err
	})
	if err != nil {
		return nil, common.StorageError("load meal plan items", err)
	}

	graphs, err := s.resolve(ctx, items)
	if err != nil {
		return nil, err
	}

	lookup := func(recipeID string) (*recipe.Graph, error) {
		r := graphs[recipeID]
		return r.graph, r.err
	}
	cal := mealplan.BuildCalendar(query.MealPlanID, rng, items, lookup, s.itemFailure)

	for _, failed := range cal.Failures() {
		s.logger.Warn("Meal plan item unresolved",
			zap.String("meal_plan_id", query.MealPlanID),
			zap.String("item_id", failed.Item.ID),
			zap.String("recipe_id", failed.Item.RecipeID),
			zap.String("code", string(errors.GetCode(failed.Err))),
		)
	}

	s.inst.Metrics().ObserveAggregation(len(cal.Days), cal.Summary.Items, cal.Summary.Unresolved)

	s.logger.Info("Meal plan aggregated",
		zap.String("meal_plan_id", query.MealPlanID),
		zap.String("start", rng.Start.Format(mealplan.DateLayout)),
		zap.String("end", rng.End.Format(mealplan.DateLayout)),
		zap.Int("days", len(cal.Days)),
		zap.Int("items", cal.Summary.Items),
		zap.Int("unresolved", cal.Summary.Unresolved),
	)

	return cal, nil
}

func (s *MealPlanService) ensurePlan(ctx context.Context, mealPlanID string) error {
	err := common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		_, err := s.plans.GetMealPlan(ctx, mealPlanID)
		return err
	})
	if err != nil {
		return common.LookupError("load meal plan", "meal plan", mealPlanID, err)
	}
	return nil
}

type resolution struct {
	graph *recipe.Graph
	err   error
}

// resolve loads every distinct recipe once, in parallel. Per-recipe failures
// are kept for the items; only cancellation of ctx aborts.
func (s *MealPlanService) resolve(ctx context.Context, items []mealplan.Item) (map[string]resolution, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.RecipeID]; ok {
			continue
		}
		seen[item.RecipeID] = struct{}{}
		ids = append(ids, item.RecipeID)
	}

	var mu sync.Mutex
	out := make(map[string]resolution, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			graph, err := s.recipes.Load(gctx, id)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}

			mu.Lock()
			out[id] = resolution{graph: graph, err: err}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("Meal plan aggregation canceled",
			zap.Int("recipes", len(ids)),
			zap.Error(err),
		)
		return nil, common.StorageError("resolve meal plan recipes", err)
	}
	return out, nil
}

// itemFailure turns a per-item domain or storage error into the AppError
// reported on the entry.
func (s *MealPlanService) itemFailure(item mealplan.Item, err error) error {
	switch {
	case errors.Is(err, errors.CodeNotFound):
		return errors.NewUnresolvedRecipeError(item.ID, item.RecipeID).WithCause(err)
	case stderrors.Is(err, mealplan.ErrIncompleteRecipe):
		return errors.NewIncompleteRecipeError(item.RecipeID, "plan a meal").
			WithMetadata("item_id", item.ID).WithCause(err)
	case stderrors.Is(err, mealplan.ErrInvalidServings):
		return errors.NewDataIntegrityError(
			fmt.Sprintf("Meal plan item %s has servings %d", item.ID, item.Servings), err,
		).WithMetadata("item_id", item.ID)
	case stderrors.Is(err, recipe.ErrInvalidBaseServings):
		return errors.NewInvalidRecipeStateError(item.RecipeID, err).WithMetadata("item_id", item.ID)
	default:
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return appErr
		}
		return errors.NewInternalError("Meal plan item could not be built").
			WithMetadata("item_id", item.ID).WithCause(err)
	}
}
