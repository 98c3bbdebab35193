package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type HealthHandler struct {
	device     string
	labelCount int
	checks     map[string]ReadinessCheck
}

func NewHealthHandler(device string, labelCount int, checks map[string]ReadinessCheck) *HealthHandler {
	return &HealthHandler{
		device:     device,
		labelCount: labelCount,
		checks:     checks,
	}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// Ready runs every readiness check and answers 503 if any fails.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	results := make(fiber.Map, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != fiber.StatusOK {
		state = "not ready"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": state,
		"device": h.device,
		"labels": h.labelCount,
		"checks": results,
	})
}
