package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/handler"
	internalmiddleware "github.com/noah-isme/gradestats-sync/internal/middleware"
	"github.com/noah-isme/gradestats-sync/internal/service"
	"github.com/noah-isme/gradestats-sync/pkg/config"
	"github.com/noah-isme/gradestats-sync/pkg/jobs"
	"github.com/noah-isme/gradestats-sync/pkg/logger"
	reqidmiddleware "github.com/noah-isme/gradestats-sync/pkg/middleware/requestid"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP trigger API and the sync worker",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	jobSvc := service.NewSyncJobService(a.sync, a.cache, a.snapshots, a.cfg.Cache.RunTTL, a.logger)
	queue := jobs.NewQueue("sync", jobSvc.Handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: a.cfg.Worker.BufferSize,
		MaxRetries: a.cfg.Worker.MaxRetries,
		RetryDelay: a.cfg.Worker.RetryDelay,
		Logger:     a.logger,
	})
	queue.Start(ctx)
	defer queue.Stop()
	jobSvc.AttachQueue(queue)

	router := newRouter(a, jobSvc)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Sugar().Infow("server starting", "addr", srv.Addr, "env", a.cfg.Env)
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
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

func newRouter(a *app, jobSvc *service.SyncJobService) *gin.Engine {
	if a.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(internalmiddleware.Metrics(a.metrics, a.cfg.APIPrefix))

	checks := map[string]handler.Pinger{"database": a.db}
	if a.redis != nil {
		checks["cache"] = handler.PingFunc(a.cacheRepo.Ping)
	}
	metricsHandler := handler.NewMetricsHandler(a.metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	syncHandler := handler.NewSyncHandler(jobSvc, validator.New())
	api := r.Group(a.cfg.APIPrefix)
	api.POST("/sync", syncHandler.TriggerAll)
	api.POST("/sync/courses", syncHandler.TriggerBatch)
	api.POST("/sync/courses/:code", syncHandler.TriggerCourse)
	api.POST("/sync/courses/:code/sittings", syncHandler.TriggerSitting)
	api.GET("/sync/runs/:id", syncHandler.Report)

	return r
}
