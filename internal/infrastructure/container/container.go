// Package container wires the planner with Uber FX
package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alchemorsel/planner/internal/application/common"
	mealplanapp "github.com/alchemorsel/planner/internal/application/mealplan"
	preferenceapp "github.com/alchemorsel/planner/internal/application/preference"
	recipeapp "github.com/alchemorsel/planner/internal/application/recipe"
	shareapp "github.com/alchemorsel/planner/internal/application/share"
	"github.com/alchemorsel/planner/internal/infrastructure/cache"
	"github.com/alchemorsel/planner/internal/infrastructure/config"
	"github.com/alchemorsel/planner/internal/infrastructure/events"
	"github.com/alchemorsel/planner/internal/infrastructure/http/server"
	"github.com/alchemorsel/planner/internal/infrastructure/monitoring"
	gormstore "github.com/alchemorsel/planner/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/postgres"
	rediscache "github.com/alchemorsel/planner/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/seed"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/planner/internal/ports/inbound"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/pkg/healthcheck"
	"github.com/alchemorsel/planner/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CoreModule provides the engine and its storage without the ops server
var CoreModule = fx.Options(
	LoggerModule,
	DatabaseModule,
	CacheModule,
	StoreModule,
	MetricsModule,
	TracingModule,
	EventModule,
	ServiceModule,
	SeedModule,
)

// Module provides everything except the configuration
var Module = fx.Options(
	CoreModule,
	HealthModule,
	HTTPModule,
	LifecycleModule,
	fx.Invoke(func(*Engine) {}),
)

// ConfigModule loads the configuration from path, or from the default
// search paths when path is empty.
func ConfigModule(path string) fx.Option {
	return fx.Provide(func() (*config.Config, error) {
		return config.Load(path)
	})
}

// NamedChecker is a health check contributed to the health group
type NamedChecker struct {
	Name    string
	Checker healthcheck.Checker
}

// LoggerOut is the logger and its adjustable level
type LoggerOut struct {
	fx.Out

	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// LoggerModule provides logging
var LoggerModule = fx.Provide(NewLogger)

// NewLogger builds the service logger from the app section
func NewLogger(cfg *config.Config) (LoggerOut, error) {
	log, level, err := logger.NewWithLevel(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: cfg.App.Debug,
		Fields: map[string]string{
			"service":     cfg.App.Name,
			"environment": cfg.App.Environment,
		},
	})
	if err != nil {
		return LoggerOut{}, err
	}
	return LoggerOut{Logger: log, Level: level}, nil
}

// WatchModule applies log level changes from the config file at path while
// the application runs. An empty path disables watching.
func WatchModule(path string) fx.Option {
	return fx.Invoke(func(lc fx.Lifecycle, level zap.AtomicLevel, log *zap.Logger) {
		if path == "" {
			return
		}

		var watcher *config.Watcher
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				w, err := config.NewWatcher(path, config.DefaultDebounce, log, func(cfg *config.Config) {
					next := logger.ParseLevel(cfg.App.LogLevel)
					if next != level.Level() {
						log.Info("Changing log level",
							zap.Stringer("from", level.Level()),
							zap.Stringer("to", next),
						)
						level.SetLevel(next)
					}
				})
				if err != nil {
					return err
				}
				watcher = w
				return nil
			},
			OnStop: func(ctx context.Context) error {
				if watcher == nil {
					return nil
				}
				return watcher.Close()
			},
		})
	})
}

// DatabaseOut is the result of opening the database
type DatabaseOut struct {
	fx.Out

	DB    *gorm.DB
	SQL   *sql.DB
	Check NamedChecker `group:"health_checks"`
}

// DatabaseModule provides database connections
var DatabaseModule = fx.Provide(NewDatabase)

// NewDatabase opens SQLite or PostgreSQL, brings the schema up to date and
// optionally seeds demo data.
func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (DatabaseOut, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch cfg.Database.Driver {
	case "postgres":
		db, err = openPostgres(cfg, log)
	default:
		db, err = sqlite.SetupDatabase(cfg.Database.Path,
			gormstore.NewLogger(log, cfg.Database.LogLevel, cfg.Database.SlowQueryThreshold))
		if err == nil {
			log.Info("Connected to SQLite database",
				zap.String("path", cfg.Database.Path),
				zap.Bool("in_memory", cfg.Database.Path == sqlite.MemoryPath),
			)
		}
	}
	if err != nil {
		return DatabaseOut{}, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return DatabaseOut{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := sqlDB.Close(); err != nil {
				log.Error("Failed to close database connection", zap.Error(err))
			}
			return nil
		},
	})

	return DatabaseOut{
		DB:  db,
		SQL: sqlDB,
		Check: NamedChecker{
			Name:    "database",
			Checker: healthcheck.NewDatabaseChecker(sqlDB),
		},
	}, nil
}

func openPostgres(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	cm, err := postgres.NewConnectionManager(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		migrator, err := migrations.New(cm.SQLDB(), cfg.Database.Database, log)
		if err != nil {
			return nil, err
		}
		if err := migrator.Up(); err != nil {
			return nil, err
		}
	}

	return cm.GetDB(), nil
}

// CacheOut is the cache backend selected by configuration
type CacheOut struct {
	fx.Out

	Repo  outbound.CacheRepository
	Check NamedChecker `group:"health_checks"`
}

// CacheModule provides the cache backend
var CacheModule = fx.Provide(NewCache)

// NewCache builds the memory or Redis cache backend
func NewCache(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (CacheOut, error) {
	if cfg.Cache.Provider == "redis" {
		client, err := rediscache.NewClient(cfg.Redis, log)
		if err != nil {
			return CacheOut{}, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		return CacheOut{
			Repo:  rediscache.NewCacheRepository(client, cfg.Cache.KeyPrefix, log),
			Check: NamedChecker{Name: "redis", Checker: healthcheck.NewRedisChecker(client)},
		}, nil
	}

	repo := memory.NewCacheRepository(cfg.Cache.CleanupInterval)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return repo.Close()
		},
	})
	log.Info("Using in-memory cache")
	return CacheOut{
		Repo: repo,
		Check: NamedChecker{
			Name: "cache",
			Checker: healthcheck.NewCustomChecker("cache", func(context.Context) (healthcheck.Status, string, interface{}) {
				return healthcheck.StatusHealthy, "", map[string]interface{}{"entries": repo.Len()}
			}),
		},
	}, nil
}

// StoreModule provides the storage ports. Recipe reads and writes share
// one value so that writes reach the recipe cache.
var StoreModule = fx.Provide(
	NewRecipeStore,
	func(r outbound.RecipeRepository) outbound.RecipeStore { return r },
	gormstore.NewMealPlanRepository,
	func(r *gormstore.MealPlanRepository) outbound.MealPlanStore { return r },
	func(r *gormstore.MealPlanRepository) outbound.MealPlanWriter { return r },
	fx.Annotate(
		gormstore.NewShareRepository,
		fx.As(new(outbound.ShareStore)),
	),
	fx.Annotate(
		gormstore.NewPreferenceRepository,
		fx.As(new(outbound.PreferenceStore)),
	),
)

// NewRecipeStore returns the GORM recipe repository, behind the read-through
// cache when caching is enabled.
func NewRecipeStore(db *gorm.DB, cacheRepo outbound.CacheRepository, cfg *config.Config, log *zap.Logger) outbound.RecipeRepository {
	store := gormstore.NewRecipeRepository(db)
	if !cfg.Cache.Enabled {
		return store
	}
	return cache.NewRecipeCache(store, cacheRepo, cfg.Cache.RecipeTTL, log)
}

// SeedModule writes the demo data when database.seed is set
var SeedModule = fx.Invoke(SeedDemoData)

// SeedDemoData seeds through the recipe repository, so a cached store sees
// the writes. Failures are logged and do not stop the application.
func SeedDemoData(cfg *config.Config, recipes outbound.RecipeRepository, plans outbound.MealPlanWriter, log *zap.Logger) {
	if !cfg.Database.Seed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := seed.Demo(ctx, recipes, plans, time.Now().UTC()); err != nil {
		log.Warn("Failed to seed database", zap.Error(err))
		return
	}
	log.Info("Demo data ready",
		zap.String("recipe_id", seed.DemoRecipeID),
		zap.String("meal_plan_id", seed.DemoMealPlanID),
	)
}

// MetricsModule provides the Prometheus registry and engine metrics
var MetricsModule = fx.Provide(
	monitoring.NewRegistry,
	NewEngineMetrics,
)

// NewEngineMetrics registers the engine collectors, or returns a no-op
// recorder when metrics are disabled.
func NewEngineMetrics(cfg *config.Config, reg *prometheus.Registry, sqlDB *sql.DB) (outbound.EngineMetrics, error) {
	if !cfg.Monitoring.EnableMetrics {
		return common.NopMetrics{}, nil
	}
	if err := monitoring.RegisterDBStats(reg, sqlDB, cfg.Database.Driver); err != nil {
		return nil, fmt.Errorf("failed to register db stats: %w", err)
	}
	return monitoring.NewEngineMetrics(reg)
}

// TracingModule provides the tracer provider
var TracingModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			Insecure:       cfg.Monitoring.OTLPInsecure,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
)

// EventModule provides event handling
var EventModule = fx.Options(
	fx.Provide(
		events.NewDispatcher,
		func(d *events.Dispatcher) outbound.EventPublisher { return d },
	),
	fx.Invoke(RegisterEventHandlers),
)

// RegisterEventHandlers logs every domain event the engine raises
func RegisterEventHandlers(d *events.Dispatcher, log *zap.Logger) {
	handler := events.LogHandler(log.Named("domain-events"))
	for _, name := range []string{
		"share.issued",
		"share.revoked",
		"preference.merged",
		"preference.deactivated",
		"preference.reactivated",
	} {
		d.Register(name, handler)
	}
}

// Engine groups the inbound ports
type Engine struct {
	Recipes     inbound.RecipeService
	Shares      inbound.ShareService
	MealPlans   inbound.MealPlanService
	Preferences inbound.PreferenceService
}

// NewEngine groups the services
func NewEngine(
	recipes inbound.RecipeService,
	shares inbound.ShareService,
	mealPlans inbound.MealPlanService,
	preferences inbound.PreferenceService,
) *Engine {
	return &Engine{
		Recipes:     recipes,
		Shares:      shares,
		MealPlans:   mealPlans,
		Preferences: preferences,
	}
}

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	NewEngine,
	func(store outbound.RecipeStore, metrics outbound.EngineMetrics, cfg *config.Config, log *zap.Logger) inbound.RecipeService {
		return recipeapp.NewRecipeService(store, metrics, cfg.Engine.StorageTimeout, log)
	},
	func(
		shares outbound.ShareStore,
		recipes outbound.RecipeStore,
		publisher outbound.EventPublisher,
		metrics outbound.EngineMetrics,
		cfg *config.Config,
		log *zap.Logger,
	) inbound.ShareService {
		return shareapp.NewShareService(shares, recipes, publisher, metrics, shareapp.Config{
			StorageTimeout: cfg.Engine.StorageTimeout,
		}, log)
	},
	func(
		plans outbound.MealPlanStore,
		recipes outbound.RecipeStore,
		metrics outbound.EngineMetrics,
		cfg *config.Config,
		log *zap.Logger,
	) inbound.MealPlanService {
		return mealplanapp.NewMealPlanService(plans, recipes, metrics, mealplanapp.Config{
			StorageTimeout: cfg.Engine.StorageTimeout,
			Concurrency:    cfg.Engine.AggregationConcurrency,
		}, log)
	},
	func(
		store outbound.PreferenceStore,
		publisher outbound.EventPublisher,
		metrics outbound.EngineMetrics,
		cfg *config.Config,
		log *zap.Logger,
	) inbound.PreferenceService {
		return preferenceapp.NewPreferenceService(store, publisher, metrics, preferenceapp.Config{
			StorageTimeout: cfg.Engine.StorageTimeout,
		}, log)
	},
)

// HealthParams collects the contributed health checks
type HealthParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Checks   []NamedChecker `group:"health_checks"`
}

// HealthModule provides the health check registry
var HealthModule = fx.Provide(NewHealthCheck)

// NewHealthCheck registers every contributed check behind a circuit breaker
// and, when enabled, a metrics recorder.
func NewHealthCheck(p HealthParams) *healthcheck.HealthCheck {
	health := healthcheck.New(p.Config.App.Version, p.Logger.Named("health"))

	var metrics *healthcheck.HealthMetrics
	if p.Config.Monitoring.EnableMetrics {
		metrics = healthcheck.NewHealthMetrics(p.Registry, "planner")
	}

	for _, c := range p.Checks {
		checker := healthcheck.WithCircuitBreaker(c.Name, c.Checker, healthcheck.DefaultCircuitBreakerConfig(), p.Logger)
		health.Register(c.Name, healthcheck.WithMetrics(c.Name, metrics, checker))
	}
	return health
}

// HTTPModule provides the operations server
var HTTPModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger, health *healthcheck.HealthCheck, reg *prometheus.Registry) (*server.Server, error) {
		return server.NewServer(cfg, log, health, reg)
	},
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(RegisterLifecycleHooks)

// RegisterLifecycleHooks starts and stops the ops server
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	srv *server.Server,
	_ *monitoring.TracingProvider,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting planner",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", cfg.Database.Driver),
				zap.String("cache", cfg.Cache.Provider),
			)
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down planner")
			if err := srv.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown ops server", zap.Error(err))
			}
			_ = log.Sync()
			return nil
		},
	})
}
