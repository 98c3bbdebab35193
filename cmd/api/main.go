package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/intent-api/backend/internal/api"
	"github.com/intent-api/backend/internal/api/handlers"
	"github.com/intent-api/backend/internal/evaluation"
	"github.com/intent-api/backend/internal/metrics"
	"github.com/intent-api/backend/internal/pipeline"
	"github.com/intent-api/backend/pkg/config"
	appLogger "github.com/intent-api/backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Intent Classification API Server")

	metrics.Init()

	startCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	p, err := pipeline.Build(startCtx, cfg, pipeline.Options{WithStore: true, WithCache: true})
	cancel()
	if err != nil {
		appLogger.Fatal("Failed to build prediction pipeline", zap.Error(err))
	}
	defer p.Close()

	checks := make(map[string]handlers.ReadinessCheck, len(p.Checks))
	for name, check := range p.Checks {
		checks[name] = check
	}

	app, stopMiddleware := api.NewApp(cfg.Server, cfg.RateLimit, api.Dependencies{
		Predictions:     p.Engine,
		Reports:         evaluation.NewEvaluator(p.Store),
		Device:          p.Device,
		LabelCount:      p.Labels.Len(),
		ReadinessChecks: checks,
	})
	defer stopMiddleware()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting",
		zap.String("address", addr),
		zap.String("device", p.Device),
		zap.Int("labels", p.Labels.Len()),
	)

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		appLogger.Error("Server shutdown incomplete", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
