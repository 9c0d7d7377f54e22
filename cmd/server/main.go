package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ekaty/ekaty-backend/config"
	"github.com/ekaty/ekaty-backend/internal/app/controller"
	"github.com/ekaty/ekaty-backend/internal/bootstrap"
	"github.com/ekaty/ekaty-backend/internal/db"
	"github.com/ekaty/ekaty-backend/internal/middleware"
	"github.com/ekaty/ekaty-backend/internal/router"
	"github.com/ekaty/ekaty-backend/internal/scheduler"
	ws "github.com/ekaty/ekaty-backend/internal/websocket"
	"github.com/ekaty/ekaty-backend/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logCfg := logger.ForEnvironment(cfg.Server.Environment, "ekaty-server")
	logger.Initialize(logCfg)

	logger.Info("Starting eKaty backend server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logCfg.Level,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewProgressHub()
	go hub.Run(ctx)

	app, err := bootstrap.New(cfg, db.GetDB(), bootstrap.Options{
		UploadReports: true,
		UseLock:       true,
		Progress:      hub,
	})
	if err != nil {
		logger.Fatal("Failed to wire services", err)
	}
	defer app.Close()

	// Initialize controllers
	authController := controller.NewAuthController(app.Auth)
	restaurantController := controller.NewRestaurantController(app.Restaurants)
	syncController := controller.NewSyncController(ctx, app.Sync, app.Usage, app.Audit, hub, cfg.CORS.AllowedOrigins)
	healthController := controller.NewHealthController(app.Health)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	r := router.NewRouter(
		authController,
		restaurantController,
		syncController,
		healthController,
		authMiddleware,
		cfg,
	)

	var syncScheduler *scheduler.SyncScheduler
	if cfg.Sync.SchedulerEnabled {
		syncScheduler = scheduler.NewSyncScheduler(ctx, scheduler.Schedule{
			RefreshCron:     cfg.Sync.RefreshCron,
			StaleCron:       cfg.Sync.StaleCron,
			CleanupCron:     cfg.Sync.CleanupCron,
			HealthCron:      cfg.Sync.HealthCron,
			StaleAfter:      cfg.Sync.StaleAfter,
			StaleBatchLimit: cfg.Sync.StaleBatchLimit,
		}, app.Sync, app.Importer, app.Usage, app.Health)
		if err := syncScheduler.Start(); err != nil {
			logger.Fatal("Failed to start sync scheduler", err)
		}
	} else {
		logger.Info("Sync scheduler disabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err)
	}
	if syncScheduler != nil {
		syncScheduler.Stop()
	}
	// in-flight sync runs observe ctx and stop at the next provider call
	syncController.Wait()

	logger.Info("Server stopped successfully")
}
