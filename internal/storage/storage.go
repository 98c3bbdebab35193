// Package storage defines the persistence gateway for classified queries and
// the feedback users leave on them.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/intent-api/backend/internal/storage/models"
)

var (
	// ErrPersistence wraps every store failure. The driver error is kept in
	// the chain.
	ErrPersistence = errors.New("persistence failure")
	ErrNotFound    = errors.New("record not found")
)

// Gateway records queries and feedback. Inserts are synchronous and are
// never retried.
type Gateway interface {
	// RecordQuery inserts a classified query and returns its new id.
	RecordQuery(ctx context.Context, text, intent string, confidence float64, ts time.Time) (int64, error)
	// RecordFeedback inserts a verdict for queryID. A queryID with no
	// matching query is rejected by the store's foreign key.
	RecordFeedback(ctx context.Context, queryID int64, isCorrect bool, correctedIntent *string, ts time.Time) error

	GetQuery(ctx context.Context, id int64) (*models.QueryRecord, error)
	ListFeedback(ctx context.Context, queryID int64) ([]models.FeedbackRecord, error)
	FeedbackStats(ctx context.Context) (*models.FeedbackStats, error)

	Ping(ctx context.Context) error
	Close() error
}
