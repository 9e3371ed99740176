// Package app wires configuration, storage, and the HTTP surface together.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/content-machine/core/internal/config"
	"github.com/content-machine/core/internal/database"
	"github.com/content-machine/core/internal/middleware"
	"github.com/content-machine/core/internal/modules/cache"
	"github.com/content-machine/core/internal/modules/dedupe"
	"github.com/content-machine/core/internal/modules/exporter"
	"github.com/content-machine/core/internal/modules/persona"
	"github.com/content-machine/core/internal/modules/pipeline"
	"github.com/content-machine/core/internal/modules/queue"
	"github.com/content-machine/core/internal/modules/scanner"
	"github.com/content-machine/core/internal/modules/telemetry"
	pkgcron "github.com/content-machine/core/internal/pkg/cron"
	pkgredis "github.com/content-machine/core/internal/pkg/redis"
	"github.com/content-machine/core/internal/pkg/runtimecfg"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.Settings
	router *gin.Engine
	db     *gorm.DB
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler

	redis    *pkgredis.Client
	runtime  *runtimecfg.Store
	queue    *queue.Service
	tel      *telemetry.Service
	pipeline *pipeline.Service
	scanner  *scanner.Service
}

// New initializes the application: config, database, redis, services,
// routes, and cron.
func New(logger *zap.Logger, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	// redis only backs runtime toggles, so an unreachable instance degrades
	// to config defaults instead of failing startup
	rc, err := pkgredis.Connect(cfg.Redis.URLValue())
	if err != nil {
		logger.Warn("redis unavailable, runtime toggles fall back to config", zap.Error(err))
		rc = nil
	}

	roster, err := persona.Load(cfg.PersonasPath)
	if err != nil {
		return nil, fmt.Errorf("personas: %w", err)
	}

	exportSvc, err := exporter.NewService(cfg.Exports, logger)
	if err != nil {
		return nil, err
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	runtimeStore := runtimecfg.NewStore(rc, cfg.Runtime.DryRun, logger)
	queueSvc := queue.NewService(db)
	tel := telemetry.NewService(db)

	// disabled stores stay nil; the llm client and the pipeline treat a nil
	// store as a pass-through
	var cacheStore *cache.Store
	if cfg.Cache.Enabled {
		cacheStore = cache.NewStore(db, cfg.Cache.TTLSeconds, cfg.Cache.MaxEntries)
	}
	var dedupeStore *dedupe.Store
	if cfg.Dedupe.Enabled {
		dedupeStore = dedupe.NewStore(db)
	}

	pipelineSvc := pipeline.NewService(
		cfg, roster, cacheStore, dedupeStore, queueSvc, tel, exportSvc, logger)
	scannerSvc := scanner.NewService(cfg.Scanner, logger)

	ctx, cancel := context.WithCancel(context.Background())

	sched := pkgcron.New()
	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		logger:   logger,
		cancel:   cancel,
		sched:    sched,
		redis:    rc,
		runtime:  runtimeStore,
		queue:    queueSvc,
		tel:      tel,
		pipeline: pipelineSvc,
		scanner:  scannerSvc,
	}

	app.registerCronJobs()
	go sched.Start(ctx)

	app.registerRoutes()
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Server.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background goroutines.
func (a *App) Shutdown() { a.cancel() }

func (a *App) uptime() time.Duration { return time.Since(processStart) }

var processStart = time.Now()
