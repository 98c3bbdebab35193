package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/intent-api/backend/pkg/config"
)

func TestOpenSQLite(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite"}
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "intent.db")

	gw, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer gw.Close()

	id, err := gw.RecordQuery(context.Background(), "hello", "greeting", 0.5, time.Now())
	if err != nil || id < 1 {
		t.Fatalf("RecordQuery = %d, %v", id, err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
