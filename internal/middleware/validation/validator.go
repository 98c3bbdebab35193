package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PredictTextKey is the fiber Locals key holding the validated predict text.
const PredictTextKey = "predict_text"

type Config struct {
	MaxTextLength       int
	AllowedContentTypes []string
	PredictPath         string
	Logger              *zap.Logger
}

// Middleware rejects unsupported content types on writes and validates the
// predict body before any model work. The extracted text is stored under
// PredictTextKey.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxTextLength == 0 {
		cfg.MaxTextLength = 5000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationJSON, fiber.MIMETextPlain}
	}
	if cfg.PredictPath == "" {
		cfg.PredictPath = "/api/v1/predict"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get(fiber.HeaderContentType)
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		if c.Method() == fiber.MethodPost && c.Path() == cfg.PredictPath {
			text, ferr := PredictText(c.Get(fiber.HeaderContentType), c.Body())
			if ferr != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ferr.Error()})
			}

			if utf8.RuneCountInString(text) > cfg.MaxTextLength {
				cfg.Logger.Warn("Predict text too long",
					zap.String("ip", c.IP()),
					zap.Int("length", utf8.RuneCountInString(text)),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": (&FieldError{Field: "text", Message: "exceeds maximum length"}).Error(),
				})
			}

			c.Locals(PredictTextKey, text)
		}

		return c.Next()
	}
}

// sanitizeString drops NUL bytes, which the stores reject or truncate at.
func sanitizeString(input string) string {
	return strings.ReplaceAll(input, "\x00", "")
}
