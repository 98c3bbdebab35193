package security

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHeadersMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		cfg      HeadersConfig
		wantHSTS bool
	}{
		{"production", HeadersConfig{AllowedOrigins: []string{"https://app.example.com"}}, true},
		{"development", HeadersConfig{IsDevelopment: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(HeadersMiddleware(tt.cfg))
			app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.Header.Get("X-Frame-Options") != "DENY" {
				t.Error("missing X-Frame-Options")
			}
			if resp.Header.Get("Cache-Control") != "no-store" {
				t.Error("missing Cache-Control: no-store")
			}
			hasHSTS := resp.Header.Get("Strict-Transport-Security") != ""
			if hasHSTS != tt.wantHSTS {
				t.Errorf("HSTS present = %v, want %v", hasHSTS, tt.wantHSTS)
			}
			for _, o := range tt.cfg.AllowedOrigins {
				if !strings.Contains(resp.Header.Get("Content-Security-Policy"), o) {
					t.Errorf("CSP missing origin %s", o)
				}
			}
		})
	}
}

func TestBuildConnectSrc(t *testing.T) {
	got := buildConnectSrc([]string{"https://a.example", "*", " ", "https://b.example"})
	if got != " https://a.example https://b.example" {
		t.Errorf("buildConnectSrc = %q", got)
	}
}
