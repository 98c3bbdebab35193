// Package requestid tags every request with an id that is echoed in the
// response and attached to log lines.
package requestid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	Header    = "X-Request-ID"
	LocalsKey = "request_id"
)

// Middleware keeps a well-formed incoming X-Request-ID and otherwise
// generates a new UUID.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(Header)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(LocalsKey, id)
		c.Set(Header, id)
		return c.Next()
	}
}

// FromCtx returns the request id, or "" outside the middleware.
func FromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalsKey).(string)
	return id
}
