package ratelimit

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestAllowRefills(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := newLimiter(Config{MaxRequestsPerMinute: 3}, clock.Now)

	for i := 0; i < 3; i++ {
		if ok, _ := rl.allow("1.2.3.4"); !ok {
			t.Fatalf("request %d denied within budget", i+1)
		}
	}
	if ok, _ := rl.allow("1.2.3.4"); ok {
		t.Fatal("fourth request allowed, want denied")
	}
	if ok, _ := rl.allow("5.6.7.8"); !ok {
		t.Fatal("other client should have its own bucket")
	}

	clock.Advance(20 * time.Second)
	if ok, remaining := rl.allow("1.2.3.4"); !ok || remaining != 0 {
		t.Fatalf("after one refill interval got ok=%v remaining=%d", ok, remaining)
	}
}

func TestEvictIdle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := newLimiter(Config{MaxRequestsPerMinute: 60}, clock.Now)
	rl.allow("a")
	rl.allow("b")

	clock.Advance(11 * time.Minute)
	rl.allow("b")

	if n := rl.evictIdle(10 * time.Minute); n != 1 {
		t.Errorf("evicted %d buckets, want 1", n)
	}
}

func TestMiddleware(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 2, SkipPaths: []string{"/health"}})
	defer rl.Stop()

	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/predict", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/predict", nil))
		if err != nil {
			t.Fatal(err)
		}
		codes = append(codes, resp.StatusCode)
		if i == 2 && resp.Header.Get("Retry-After") == "" {
			t.Error("limited response missing Retry-After")
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != 429 {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}

	for i := 0; i < 5; i++ {
		resp, _ := app.Test(httptest.NewRequest("GET", "/health", nil))
		if resp.StatusCode != 200 {
			t.Fatalf("skipped path limited: %d", resp.StatusCode)
		}
	}
}
