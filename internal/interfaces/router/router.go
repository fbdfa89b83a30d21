package router

import (
	"context"

	"verdant-backend/internal/aggregates"
	"verdant-backend/internal/config"
	"verdant-backend/internal/growth"
	"verdant-backend/internal/infrastructure/database"
	adminhandler "verdant-backend/internal/interfaces/handlers/admin"
	growthhandler "verdant-backend/internal/interfaces/handlers/growth"
	healthhandler "verdant-backend/internal/interfaces/handlers/health"
	projecthandler "verdant-backend/internal/interfaces/handlers/projects"
	snapshothandler "verdant-backend/internal/interfaces/handlers/snapshots"
	"verdant-backend/internal/livesync"
	"verdant-backend/internal/matviews"
	"verdant-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// App bundles the Fiber app with the background components the server
// entrypoint owns the lifecycle of.
type App struct {
	Fiber    *fiber.App
	DB       *gorm.DB
	Rdb      *redis.Client
	Sync     *livesync.Synchronizer
	Sweeper  *matviews.Sweeper
	notifier *livesync.RedisNotifier
}

// Start launches the synchronizer loop and the reconcile sweeper. Serverless
// deployments skip this and serve the HTTP surface only.
func (a *App) Start(ctx context.Context) {
	if a.Sync != nil {
		a.Sync.Start(ctx)
	}
	if a.Sweeper != nil {
		go a.Sweeper.Run(ctx)
	}
}

// Stop shuts down the background components; HTTP shutdown is the caller's.
func (a *App) Stop() {
	if a.notifier != nil {
		_ = a.notifier.Close()
	}
	if a.Sync != nil {
		a.Sync.Stop()
	}
}

// CreateApp builds the Fiber app with all global middleware and routes.
// DB and Redis are optional (absent URL): the health surface still works,
// data routes are only mounted when their backing stores exist.
func CreateApp(cfg *config.Config) (*App, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(opt)
		app.Use(middleware.HealthMarker(rdb))
	}

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	result := &App{Fiber: app, DB: db, Rdb: rdb}

	var sync *livesync.Synchronizer
	if db != nil {
		views := matviews.NewManager(db, &matviews.PostgresCatalog{DB: db})
		svc := &aggregates.Service{
			DB:            db,
			Views:         views,
			Growth:        growth.NewRegistry(cfg.MaxHorizonMonths),
			RetryAttempts: cfg.TransientRetryCount,
		}

		syncOpts := livesync.Options{
			Interval:       cfg.SyncInterval,
			BackoffCeiling: cfg.SyncBackoffCeiling,
		}
		if rdb != nil {
			notifier := livesync.NewRedisNotifier(context.Background(), rdb, func(projectID int64) {
				if err := views.MarkStale(context.Background(), projectID); err != nil {
					log.Warn().Err(err).Int64("project_id", projectID).Msg("Failed to mark view stale")
				}
			})
			syncOpts.Wakeups = notifier.Wakeups()
			result.notifier = notifier
		}
		sync = livesync.New(svc, syncOpts)
		result.Sync = sync
		result.Sweeper = &matviews.Sweeper{
			Views:    views,
			LiveIDs:  svc.LiveProjectIDs,
			Interval: cfg.ReconcileInterval,
		}

		growthHandlers := &growthhandler.Handlers{Service: svc}
		projectHandlers := &projecthandler.Handlers{Service: svc}
		snapshotHandlers := &snapshothandler.Handlers{Sync: sync}
		adminHandlers := &adminhandler.Handlers{Service: svc, Views: views}

		api := app.Group("/api/v1")
		api.Get("/growth", growthHandlers.GetGrowthCurve)
		api.Get("/projects/snapshot", snapshotHandlers.GetSnapshot)
		api.Get("/projects/:id/aggregate", projectHandlers.GetAggregate)

		adminGroup := api.Group("/admin", middleware.RequireAdminKey(cfg.AdminKey))
		adminGroup.Post("/reconcile", adminHandlers.Reconcile)
		adminGroup.Post("/projects/:id/refresh", adminHandlers.RefreshView)
	}

	healthHandlers := &healthhandler.Handlers{
		Rdb:      rdb,
		AdminKey: cfg.AdminKey,
	}
	if db != nil {
		healthHandlers.DB = &gormDBPinger{db: db}
	}
	if sync != nil {
		healthHandlers.Sync = sync
	}
	app.Get("/", healthHandlers.Root)
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/reset", healthHandlers.Reset)

	return result, nil
}
