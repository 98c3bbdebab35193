package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/intent-api/backend/internal/middleware/requestid"
	"github.com/intent-api/backend/internal/middleware/validation"
	"github.com/intent-api/backend/pkg/logger"
)

type PredictHandler struct {
	service PredictionService
}

func NewPredictHandler(service PredictionService) *PredictHandler {
	return &PredictHandler{service: service}
}

// HandlePredict classifies the request text and records it.
func (h *PredictHandler) HandlePredict(c *fiber.Ctx) error {
	text, ok := c.Locals(validation.PredictTextKey).(string)
	if !ok {
		var ferr *validation.FieldError
		text, ferr = validation.PredictText(c.Get(fiber.HeaderContentType), c.Body())
		if ferr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": ferr.Error(),
			})
		}
	}

	response, err := h.service.Predict(c.UserContext(), text)
	if err != nil {
		logger.Error("Failed to process prediction",
			zap.String("request_id", requestid.FromCtx(c)),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process prediction",
		})
	}

	return c.JSON(toPredictResponse(response))
}
