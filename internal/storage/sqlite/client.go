package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/intent-api/backend/internal/storage"
	"github.com/intent-api/backend/internal/storage/models"
	"github.com/intent-api/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	// Foreign keys are a per-connection setting, so they go in the DSN where
	// every pooled connection picks them up.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_text TEXT NOT NULL,
		predicted_intent TEXT NOT NULL,
		confidence_score REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queries_created ON user_queries(created_at);
	CREATE INDEX IF NOT EXISTS idx_queries_intent ON user_queries(predicted_intent);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id INTEGER NOT NULL,
		is_correct INTEGER NOT NULL,
		corrected_intent TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (query_id) REFERENCES user_queries(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_query ON feedback(query_id);
	CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) RecordQuery(ctx context.Context, text, intent string, confidence float64, ts time.Time) (int64, error) {
	query := `INSERT INTO user_queries (query_text, predicted_intent, confidence_score, created_at) VALUES (?, ?, ?, ?)`

	res, err := c.db.ExecContext(ctx, query, text, intent, confidence, ts.UnixMilli())
	if err != nil {
		logger.Error("Failed to record query", zap.String("intent", intent), zap.Error(err))
		return 0, fmt.Errorf("%w: insert query: %w", storage.ErrPersistence, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		logger.Error("Failed to read query id", zap.Error(err))
		return 0, fmt.Errorf("%w: read query id: %w", storage.ErrPersistence, err)
	}

	logger.Debug("Query recorded",
		zap.Int64("query_id", id),
		zap.String("intent", intent),
		zap.Float64("confidence", confidence),
	)

	return id, nil
}

func (c *Client) RecordFeedback(ctx context.Context, queryID int64, isCorrect bool, correctedIntent *string, ts time.Time) error {
	query := `INSERT INTO feedback (query_id, is_correct, corrected_intent, created_at) VALUES (?, ?, ?, ?)`

	var corrected sql.NullString
	if correctedIntent != nil {
		corrected = sql.NullString{String: *correctedIntent, Valid: true}
	}

	_, err := c.db.ExecContext(ctx, query, queryID, boolToInt(isCorrect), corrected, ts.UnixMilli())
	if err != nil {
		logger.Error("Failed to store feedback",
			zap.Int64("query_id", queryID),
			zap.Bool("is_correct", isCorrect),
			zap.Error(err),
		)
		return fmt.Errorf("%w: insert feedback: %w", storage.ErrPersistence, err)
	}

	logger.Info("Feedback stored",
		zap.Int64("query_id", queryID),
		zap.Bool("is_correct", isCorrect),
	)

	return nil
}

func (c *Client) GetQuery(ctx context.Context, id int64) (*models.QueryRecord, error) {
	query := `SELECT id, query_text, predicted_intent, confidence_score, created_at FROM user_queries WHERE id = ?`

	var r models.QueryRecord
	var createdAt int64

	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID,
		&r.QueryText,
		&r.PredictedIntent,
		&r.ConfidenceScore,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get query: %w", storage.ErrPersistence, err)
	}

	r.CreatedAt = time.UnixMilli(createdAt)
	return &r, nil
}

func (c *Client) ListFeedback(ctx context.Context, queryID int64) ([]models.FeedbackRecord, error) {
	query := `
		SELECT id, query_id, is_correct, corrected_intent, created_at
		FROM feedback
		WHERE query_id = ?
		ORDER BY id
	`

	rows, err := c.db.QueryContext(ctx, query, queryID)
	if err != nil {
		return nil, fmt.Errorf("%w: list feedback: %w", storage.ErrPersistence, err)
	}
	defer rows.Close()

	records := []models.FeedbackRecord{}
	for rows.Next() {
		var f models.FeedbackRecord
		var isCorrect int
		var corrected sql.NullString
		var createdAt int64

		if err := rows.Scan(&f.ID, &f.QueryID, &isCorrect, &corrected, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan feedback: %w", storage.ErrPersistence, err)
		}

		f.IsCorrect = isCorrect != 0
		if corrected.Valid {
			f.CorrectedIntent = &corrected.String
		}
		f.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list feedback: %w", storage.ErrPersistence, err)
	}

	return records, nil
}

func (c *Client) FeedbackStats(ctx context.Context) (*models.FeedbackStats, error) {
	stats := &models.FeedbackStats{}

	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_queries`).Scan(&stats.TotalQueries); err != nil {
		return nil, fmt.Errorf("%w: count queries: %w", storage.ErrPersistence, err)
	}

	query := `
		SELECT q.predicted_intent, f.is_correct, COALESCE(f.corrected_intent, ''), COUNT(*)
		FROM feedback f
		JOIN user_queries q ON q.id = f.query_id
		GROUP BY q.predicted_intent, f.is_correct, COALESCE(f.corrected_intent, '')
		ORDER BY q.predicted_intent
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: feedback stats: %w", storage.ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var g models.FeedbackGroup
		var isCorrect int
		if err := rows.Scan(&g.PredictedIntent, &isCorrect, &g.CorrectedIntent, &g.Count); err != nil {
			return nil, fmt.Errorf("%w: scan feedback stats: %w", storage.ErrPersistence, err)
		}
		g.IsCorrect = isCorrect != 0
		stats.Groups = append(stats.Groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: feedback stats: %w", storage.ErrPersistence, err)
	}

	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
