package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partscatalog/backend/internal/app"
	"github.com/partscatalog/backend/internal/infrastructure/config"
	"github.com/partscatalog/backend/internal/interfaces/http/middleware"
	"github.com/partscatalog/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	application, err := app.New(context.Background(), cfg, version)
	if err != nil {
		panic("Failed to initialize application: " + err.Error())
	}
	log := application.Logger

	log.Info("Starting parts catalog",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("projection_mode", cfg.Projection.Mode),
	)

	if application.Worker != nil {
		if err := application.Worker.Start(context.Background()); err != nil {
			log.Fatal("Failed to start projection worker", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        router.NewEngine(application.EngineOptions(), application.Handlers),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if application.Worker != nil {
		if err := application.Worker.Stop(ctx); err != nil {
			log.Error("Projection worker did not stop cleanly", zap.Error(err))
		}
	}
	if err := application.Close(ctx); err != nil {
		log.Error("Error releasing resources", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
