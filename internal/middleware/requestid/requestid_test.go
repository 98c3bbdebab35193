package requestid

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func TestMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(FromCtx(c)) })

	existing := uuid.NewString()
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"kept when valid", existing, true},
		{"replaced when malformed", "not-a-uuid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.incoming != "" {
				req.Header.Set(Header, tt.incoming)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			body, _ := io.ReadAll(resp.Body)
			got := resp.Header.Get(Header)
			if got != string(body) {
				t.Errorf("header %q differs from locals %q", got, body)
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("id %q is not a UUID", got)
			}
			if tt.keep && got != tt.incoming {
				t.Errorf("id = %q, want incoming %q", got, tt.incoming)
			}
			if !tt.keep && got == tt.incoming {
				t.Error("malformed id was kept")
			}
		})
	}
}
