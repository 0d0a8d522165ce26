package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/handlers"
	"github.com/yukikurage/project-management-api/internal/identity"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newRouter wires repositories, services and handlers on top of db.
func newRouter(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*gin.Engine, error) {
	store, err := identity.NewStore(cfg)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	authService := services.NewAuthService(userRepo)
	provider := identity.NewProvider(authService, store, identity.StoreOptions(cfg))

	routerCfg := handlers.RouterConfig{
		Logger:       log,
		SessionStore: store,
		Provider:     provider,
		Auth:         handlers.NewAuthHandler(authService, provider),
		Projects:     handlers.NewProjectHandler(services.NewProjectService(projectRepo, userRepo)),
		Tasks:        handlers.NewTaskHandler(services.NewTaskService(taskRepo, projectRepo)),
	}

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := middleware.NewMetrics(registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		routerCfg.Metrics = metrics
		routerCfg.Gatherer = registry
	}

	return handlers.NewRouter(routerCfg), nil
}

// serve runs the API until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests.
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	gin.SetMode(cfg.Gin.Mode)

	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	router, err := newRouter(cfg, db, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	return nil
}
