package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vctrubio/adrenalink-sub005/internal/handler"
	internalmiddleware "github.com/vctrubio/adrenalink-sub005/internal/middleware"
	"github.com/vctrubio/adrenalink-sub005/internal/models"
	"github.com/vctrubio/adrenalink-sub005/internal/repository"
	"github.com/vctrubio/adrenalink-sub005/internal/service"
	"github.com/vctrubio/adrenalink-sub005/pkg/cache"
	"github.com/vctrubio/adrenalink-sub005/pkg/config"
	"github.com/vctrubio/adrenalink-sub005/pkg/database"
	"github.com/vctrubio/adrenalink-sub005/pkg/export"
	"github.com/vctrubio/adrenalink-sub005/pkg/jobs"
	"github.com/vctrubio/adrenalink-sub005/pkg/logger"
	corsmiddleware "github.com/vctrubio/adrenalink-sub005/pkg/middleware/cors"
	reqidmiddleware "github.com/vctrubio/adrenalink-sub005/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	metricsService := service.NewMetricsService()

	settingsDefaults := models.DefaultControllerSettings()
	if cfg.Board.DefaultGapMinutes > 0 {
		settingsDefaults.GapMinutes = cfg.Board.DefaultGapMinutes
	}

	eventRepo := repository.NewEventRepository(db).WithMetrics(metricsService)
	settingsRepo := repository.NewSettingsRepository(db, redisClient, cfg.Board.SettingsCacheTTL).
		WithDefaults(settingsDefaults).
		WithMetrics(metricsService)

	boardService := service.NewBoardService(eventRepo, settingsRepo, nil, logr).WithMetrics(metricsService)
	exportService := service.NewExportService(eventRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	boardHandler := handler.NewBoardHandler(boardService)
	sessionHandler := handler.NewSessionHandler(boardService)
	settingsHandler := handler.NewSettingsHandler(boardService)
	exportHandler := handler.NewExportHandler(exportService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "metrics": metricsService.Snapshot()})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(cfg.JWT.Secret))

	api.GET("/boards/:teacherId", boardHandler.Get)
	api.POST("/boards/:teacherId/sync", boardHandler.Sync)
	api.POST("/boards/optimise", boardHandler.Optimise)
	api.POST("/boards/next-slot", boardHandler.NextSlot)
	api.GET("/boards/stats", boardHandler.Stats)

	api.POST("/events", boardHandler.CreateEvent)
	api.GET("/events/:id", boardHandler.GetEvent)
	api.PATCH("/events/:id", boardHandler.UpdateEvent)
	api.PATCH("/events/:id/status", boardHandler.UpdateStatus)
	api.DELETE("/events/:id", boardHandler.DeleteEvent)

	api.POST("/sessions", sessionHandler.Open)
	api.GET("/sessions", sessionHandler.State)
	api.POST("/sessions/draft", sessionHandler.Draft)
	api.POST("/sessions/lock-time", sessionHandler.LockTime)
	api.POST("/sessions/lock-location", sessionHandler.LockLocation)
	api.POST("/sessions/opt-out/:teacherId", sessionHandler.OptOut)
	api.POST("/sessions/submit", sessionHandler.Submit)
	api.POST("/sessions/cancel", sessionHandler.Cancel)

	api.GET("/settings", settingsHandler.Get)
	api.PUT("/settings", settingsHandler.Put)

	if cfg.Export.Enabled {
		api.GET("/export/day-sheet", exportHandler.DaySheet)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var poller *jobs.Poller
	if cfg.Poller.Enabled {
		poller = jobs.NewPoller("board-sync", boardService.PollKeys, func(ctx context.Context, key string) error {
			start := time.Now()
			confirmed, err := boardService.HandlePollKey(ctx, key)
			metricsService.ObserveSync(time.Since(start), confirmed)
			return err
		}, jobs.PollerConfig{
			Interval: cfg.Poller.Interval,
			Workers:  cfg.Poller.Workers,
			Logger:   logr,
		})
		poller.Start(ctx)
		defer poller.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
