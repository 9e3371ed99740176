package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/content-machine/core/internal/modules/pipeline"
	"github.com/content-machine/core/internal/modules/queue"
	"github.com/content-machine/core/internal/modules/scanner"
	"github.com/content-machine/core/internal/modules/telemetry"
	"github.com/content-machine/core/internal/pkg/response"
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})

	appInfo := gin.H{
		"name":     "content-machine-core",
		"version":  "2.0.0",
		"homepage": "https://github.com/content-machine/core",
	}

	api := r.Group("/api/v2")

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		up := a.uptime()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": up.Milliseconds(),
			"humanize":  humanizeDuration(up),
		})
	})
	api.GET("/health", a.health)
	api.GET("/cron", func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})

	pipeline.NewHandler(a.pipeline, a.runtime).RegisterRoutes(api)
	scanner.NewHandler(a.scanner).RegisterRoutes(api)
	queue.NewHandler(a.queue).RegisterRoutes(api)
	telemetry.NewHandler(a.tel).RegisterRoutes(api)

	api.GET("/runtime/dry_run", func(c *gin.Context) {
		response.OK(c, gin.H{"dry_run": a.runtime.DryRun(c.Request.Context())})
	})
	api.POST("/runtime/dry_run", func(c *gin.Context) {
		var dto struct {
			Enabled *bool `json:"enabled" binding:"required"`
		}
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, "enabled is required")
			return
		}
		if err := a.runtime.SetDryRun(c.Request.Context(), *dto.Enabled); err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, gin.H{"dry_run": *dto.Enabled})
	})
}

func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "ok"
	if sqlDB, err := a.db.DB(); err != nil {
		dbStatus = err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = err.Error()
	}

	redisStatus := "disabled"
	if a.redis != nil {
		redisStatus = "ok"
		if err := a.redis.Raw().Ping(ctx).Err(); err != nil {
			redisStatus = err.Error()
		}
	}

	healthy := dbStatus == "ok"
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"healthy": healthy,
		"db":      dbStatus,
		"redis":   redisStatus,
		"uptime":  humanizeDuration(a.uptime()),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
