package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/intent-api/backend/internal/middleware/requestid"
	"github.com/intent-api/backend/internal/storage"
	"github.com/intent-api/backend/pkg/logger"
)

type QueryHandler struct {
	service PredictionService
}

func NewQueryHandler(service PredictionService) *QueryHandler {
	return &QueryHandler{
		service: service,
	}
}

// GetQuery returns a recorded prediction with its feedback.
func (h *QueryHandler) GetQuery(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id: must be a positive integer",
		})
	}

	detail, err := h.service.LookupQuery(c.UserContext(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Query not found",
		})
	}
	if err != nil {
		logger.Error("Failed to look up query",
			zap.String("request_id", requestid.FromCtx(c)),
			zap.Int64("query_id", id),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to look up query",
		})
	}

	return c.JSON(detail)
}
