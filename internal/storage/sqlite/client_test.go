package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/intent-api/backend/internal/storage"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "intent.db"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if err := c.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return c
}

func strPtr(s string) *string { return &s }

func TestRecordAndGetQuery(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	ts := time.UnixMilli(1_700_000_000_123)

	id, err := c.RecordQuery(ctx, "I want to cancel my order", "cancel_order", 0.93, ts)
	if err != nil {
		t.Fatalf("RecordQuery: %v", err)
	}
	if id < 1 {
		t.Fatalf("id = %d, want >= 1", id)
	}

	got, err := c.GetQuery(ctx, id)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if got.QueryText != "I want to cancel my order" || got.PredictedIntent != "cancel_order" || got.ConfidenceScore != 0.93 {
		t.Errorf("unexpected record: %+v", got)
	}
	if !got.CreatedAt.Equal(ts) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, ts)
	}
}

func TestRecordQueryDistinctIDs(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	seen := map[int64]bool{}
	for i := 0; i < 3; i++ {
		id, err := c.RecordQuery(ctx, "same text", "same_intent", 0.5, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("id %d returned twice", id)
		}
		seen[id] = true
	}
}

func TestGetQueryNotFound(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.GetQuery(context.Background(), 999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordFeedback(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	id, err := c.RecordQuery(ctx, "where is my package", "track_order", 0.8, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.RecordFeedback(ctx, id, true, nil, time.Now()); err != nil {
		t.Fatalf("RecordFeedback(correct): %v", err)
	}
	if err := c.RecordFeedback(ctx, id, false, strPtr("delivery_period"), time.Now()); err != nil {
		t.Fatalf("RecordFeedback(incorrect): %v", err)
	}

	fb, err := c.ListFeedback(ctx, id)
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(fb) != 2 {
		t.Fatalf("got %d feedback rows, want 2", len(fb))
	}
	if !fb[0].IsCorrect || fb[0].CorrectedIntent != nil {
		t.Errorf("first row = %+v, want correct with no correction", fb[0])
	}
	if fb[1].IsCorrect || fb[1].CorrectedIntent == nil || *fb[1].CorrectedIntent != "delivery_period" {
		t.Errorf("second row = %+v, want correction delivery_period", fb[1])
	}
}

func TestRecordFeedbackUnknownQuery(t *testing.T) {
	c := newTestClient(t)
	err := c.RecordFeedback(context.Background(), 12345, true, nil, time.Now())
	if !errors.Is(err, storage.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence from foreign key", err)
	}
}

func TestListFeedbackEmpty(t *testing.T) {
	c := newTestClient(t)
	fb, err := c.ListFeedback(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if fb == nil || len(fb) != 0 {
		t.Errorf("got %v, want empty non-nil slice", fb)
	}
}

func TestFeedbackStats(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	now := time.Now()

	q1, _ := c.RecordQuery(ctx, "cancel it", "cancel_order", 0.9, now)
	q2, _ := c.RecordQuery(ctx, "refund please", "cancel_order", 0.6, now)
	q3, _ := c.RecordQuery(ctx, "track", "track_order", 0.7, now)
	if _, err := c.RecordQuery(ctx, "no feedback", "track_order", 0.7, now); err != nil {
		t.Fatal(err)
	}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(c.RecordFeedback(ctx, q1, true, nil, now))
	must(c.RecordFeedback(ctx, q2, false, strPtr("get_refund"), now))
	must(c.RecordFeedback(ctx, q2, false, strPtr("get_refund"), now))
	must(c.RecordFeedback(ctx, q3, true, nil, now))

	stats, err := c.FeedbackStats(ctx)
	if err != nil {
		t.Fatalf("FeedbackStats: %v", err)
	}
	if stats.TotalQueries != 4 {
		t.Errorf("TotalQueries = %d, want 4", stats.TotalQueries)
	}

	var total int64
	var refundCorrections int64
	for _, g := range stats.Groups {
		total += g.Count
		if g.PredictedIntent == "cancel_order" && !g.IsCorrect && g.CorrectedIntent == "get_refund" {
			refundCorrections = g.Count
		}
	}
	if total != 4 {
		t.Errorf("feedback rows counted = %d, want 4", total)
	}
	if refundCorrections != 2 {
		t.Errorf("cancel_order -> get_refund = %d, want 2", refundCorrections)
	}
}
