// Package api assembles the fiber application: middleware stack and routes.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/intent-api/backend/internal/api/handlers"
	"github.com/intent-api/backend/internal/metrics"
	"github.com/intent-api/backend/internal/middleware/ratelimit"
	"github.com/intent-api/backend/internal/middleware/requestid"
	"github.com/intent-api/backend/internal/middleware/security"
	"github.com/intent-api/backend/internal/middleware/validation"
	"github.com/intent-api/backend/pkg/config"
	"github.com/intent-api/backend/pkg/logger"
)

const apiPrefix = "/api/v1"

type Dependencies struct {
	Predictions     handlers.PredictionService
	Reports         handlers.ReportService
	Device          string
	LabelCount      int
	ReadinessChecks map[string]handlers.ReadinessCheck
}

// NewApp builds the application. The returned stop function releases
// background resources held by the middleware.
func NewApp(cfg config.ServerConfig, rl config.RateLimitConfig, deps Dependencies) (*fiber.App, func()) {
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: !cfg.IsDevelopment,
	})

	app.Use(recover.New())
	app.Use(requestid.Middleware())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${status} - ${latency} ${method} ${path} ${locals:request_id}\n",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.IsDevelopment,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, X-Request-ID",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: requestid.Header,
	}))

	stop := func() {}
	if rl.Enabled {
		limiter := ratelimit.New(ratelimit.Config{
			MaxRequestsPerMinute: rl.MaxRequestsPerMinute,
			SkipPaths:            []string{apiPrefix + "/health", apiPrefix + "/ready", "/metrics"},
			Logger:               logger.Log,
		})
		app.Use(limiter.Middleware())
		stop = limiter.Stop
	}

	app.Use(validation.Middleware(validation.Config{
		MaxTextLength: cfg.MaxTextLength,
		PredictPath:   apiPrefix + "/predict",
		Logger:        logger.Log,
	}))

	Register(app, cfg, deps)

	return app, stop
}

// Register mounts every route on app.
func Register(app *fiber.App, cfg config.ServerConfig, deps Dependencies) {
	predictHandler := handlers.NewPredictHandler(deps.Predictions)
	feedbackHandler := handlers.NewFeedbackHandler(deps.Predictions, deps.Reports)
	queryHandler := handlers.NewQueryHandler(deps.Predictions)
	healthHandler := handlers.NewHealthHandler(deps.Device, deps.LabelCount, deps.ReadinessChecks)
	wsHandler := handlers.NewWebSocketHandler(deps.Predictions, cfg.MaxTextLength)

	api := app.Group(apiPrefix)

	api.Post("/predict", predictHandler.HandlePredict)
	api.Post("/feedback", feedbackHandler.SubmitFeedback)
	api.Get("/feedback/report", feedbackHandler.GetReport)
	api.Get("/queries/:id", queryHandler.GetQuery)

	api.Get("/health", healthHandler.Health)
	api.Get("/ready", healthHandler.Ready)

	api.Use("/ws", wsHandler.Upgrade)
	api.Get("/ws", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())
}
