package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/intent-api/backend/internal/storage"
	"github.com/intent-api/backend/internal/storage/models"
	"github.com/intent-api/backend/pkg/logger"
)

//go:embed migrations.sql
var migrations embed.FS

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders cfg as a lib/pq key=value connection string. Values are
// quoted so passwords with spaces or quotes survive.
func (cfg Config) DSN() string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	parts := []string{
		"host=" + quote(cfg.Host),
		fmt.Sprintf("port=%d", port),
		"user=" + quote(cfg.User),
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quote(cfg.Password))
	}
	parts = append(parts, "dbname="+quote(cfg.DBName), "sslmode="+quote(sslMode))
	return strings.Join(parts, " ")
}

func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

type Client struct {
	db *sql.DB
}

// NewClient opens a connection pool. It does not contact the server; use
// Ping for that.
func NewClient(cfg Config) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Info("PostgreSQL client initialized",
		zap.String("host", cfg.Host),
		zap.String("dbname", cfg.DBName),
	)

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := c.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	logger.Info("PostgreSQL schema initialized")
	return nil
}

func (c *Client) RecordQuery(ctx context.Context, text, intent string, confidence float64, ts time.Time) (int64, error) {
	query := `
		INSERT INTO user_queries (query_text, predicted_intent, confidence_score, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := c.db.QueryRowContext(ctx, query, text, intent, confidence, ts.UTC()).Scan(&id)
	if err != nil {
		logger.Error("Failed to record query", zap.String("intent", intent), zap.Error(err))
		return 0, fmt.Errorf("%w: insert query: %w", storage.ErrPersistence, err)
	}

	logger.Debug("Query recorded",
		zap.Int64("query_id", id),
		zap.String("intent", intent),
		zap.Float64("confidence", confidence),
	)

	return id, nil
}

func (c *Client) RecordFeedback(ctx context.Context, queryID int64, isCorrect bool, correctedIntent *string, ts time.Time) error {
	query := `
		INSERT INTO feedback (query_id, is_correct, corrected_intent, created_at)
		VALUES ($1, $2, $3, $4)`

	var corrected sql.NullString
	if correctedIntent != nil {
		corrected = sql.NullString{String: *correctedIntent, Valid: true}
	}

	_, err := c.db.ExecContext(ctx, query, queryID, isCorrect, corrected, ts.UTC())
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
	query := `
		SELECT id, query_text, predicted_intent, confidence_score, created_at
		FROM user_queries
		WHERE id = $1`

	var r models.QueryRecord
	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID,
		&r.QueryText,
		&r.PredictedIntent,
		&r.ConfidenceScore,
		&r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get query: %w", storage.ErrPersistence, err)
	}

	return &r, nil
}

func (c *Client) ListFeedback(ctx context.Context, queryID int64) ([]models.FeedbackRecord, error) {
	query := `
		SELECT id, query_id, is_correct, corrected_intent, created_at
		FROM feedback
		WHERE query_id = $1
		ORDER BY id`

	rows, err := c.db.QueryContext(ctx, query, queryID)
	if err != nil {
		return nil, fmt.Errorf("%w: list feedback: %w", storage.ErrPersistence, err)
	}
	defer rows.Close()

	records := []models.FeedbackRecord{}
	for rows.Next() {
		var f models.FeedbackRecord
		var corrected sql.NullString
		if err := rows.Scan(&f.ID, &f.QueryID, &f.IsCorrect, &corrected, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan feedback: %w", storage.ErrPersistence, err)
		}
		if corrected.Valid {
			f.CorrectedIntent = &corrected.String
		}
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
		ORDER BY q.predicted_intent`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: feedback stats: %w", storage.ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var g models.FeedbackGroup
		if err := rows.Scan(&g.PredictedIntent, &g.IsCorrect, &g.CorrectedIntent, &g.Count); err != nil {
			return nil, fmt.Errorf("%w: scan feedback stats: %w", storage.ErrPersistence, err)
		}
		stats.Groups = append(stats.Groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: feedback stats: %w", storage.ErrPersistence, err)
	}

	return stats, nil
}
