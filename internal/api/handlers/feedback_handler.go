package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/intent-api/backend/internal/middleware/requestid"
	"github.com/intent-api/backend/internal/middleware/validation"
	"github.com/intent-api/backend/pkg/logger"
)

type FeedbackHandler struct {
	service PredictionService
	reports ReportService
}

func NewFeedbackHandler(service PredictionService, reports ReportService) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		reports: reports,
	}
}

func (h *FeedbackHandler) SubmitFeedback(c *fiber.Ctx) error {
	fb, ferr := validation.ParseFeedback(c.Body())
	if ferr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ferr.Error(),
		})
	}

	err := h.service.SubmitFeedback(c.UserContext(), fb.QueryID, fb.IsCorrect, fb.CorrectedIntent)
	if err != nil {
		logger.Error("Failed to submit feedback",
			zap.String("request_id", requestid.FromCtx(c)),
			zap.Int64("query_id", fb.QueryID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to submit feedback",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Feedback submitted successfully",
	})
}

func (h *FeedbackHandler) GetReport(c *fiber.Ctx) error {
	report, err := h.reports.FeedbackReport(c.UserContext())
	if err != nil {
		logger.Error("Failed to build feedback report",
			zap.String("request_id", requestid.FromCtx(c)),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build feedback report",
		})
	}

	return c.JSON(report)
}
