package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/intent-api/backend/internal/storage"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "defaults filled",
			cfg:  Config{Host: "db", User: "intent", DBName: "intents"},
			want: "host=db port=5432 user=intent dbname=intents sslmode=disable",
		},
		{
			name: "password quoted",
			cfg:  Config{Host: "db", Port: 6543, User: "intent", Password: "p@ss word", DBName: "intents", SSLMode: "require"},
			want: "host=db port=6543 user=intent password='p@ss word' dbname=intents sslmode=require",
		},
		{
			name: "quote and backslash escaped",
			cfg:  Config{Host: "db", User: "u", Password: `it's\x`, DBName: "d"},
			want: `host=db port=5432 user=u password='it\'s\\x' dbname=d sslmode=disable`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q\nwant     %q", got, tt.want)
			}
		})
	}
}

// Runs against a real server when INTENT_API_TEST_POSTGRES_HOST is set.
func TestClientIntegration(t *testing.T) {
	host := os.Getenv("INTENT_API_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("INTENT_API_TEST_POSTGRES_HOST not set")
	}

	c, err := NewClient(Config{
		Host:     host,
		User:     os.Getenv("INTENT_API_TEST_POSTGRES_USER"),
		Password: os.Getenv("INTENT_API_TEST_POSTGRES_PASSWORD"),
		DBName:   os.Getenv("INTENT_API_TEST_POSTGRES_DB"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := c.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	id, err := c.RecordQuery(ctx, "cancel my order", "cancel_order", 0.9, time.Now())
	if err != nil {
		t.Fatalf("RecordQuery: %v", err)
	}
	corrected := "get_refund"
	if err := c.RecordFeedback(ctx, id, false, &corrected, time.Now()); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	fb, err := c.ListFeedback(ctx, id)
	if err != nil || len(fb) != 1 {
		t.Fatalf("ListFeedback = %v, %v", fb, err)
	}
	if _, err := c.GetQuery(ctx, -1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetQuery(-1) err = %v, want ErrNotFound", err)
	}
	if err := c.RecordFeedback(ctx, -1, true, nil, time.Now()); !errors.Is(err, storage.ErrPersistence) {
		t.Errorf("feedback for missing query err = %v, want ErrPersistence", err)
	}
}
