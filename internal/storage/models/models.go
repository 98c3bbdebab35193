package models

import "time"

// QueryRecord is one classified request as stored in user_queries.
type QueryRecord struct {
	ID              int64     `json:"id"`
	QueryText       string    `json:"query_text"`
	PredictedIntent string    `json:"predicted_intent"`
	ConfidenceScore float64   `json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// FeedbackRecord is one user verdict on a prediction. CorrectedIntent is
// set exactly when IsCorrect is false.
type FeedbackRecord struct {
	ID              int64     `json:"id"`
	QueryID         int64     `json:"query_id"`
	IsCorrect       bool      `json:"is_correct"`
	CorrectedIntent *string   `json:"corrected_intent"`
	CreatedAt       time.Time `json:"created_at"`
}

// FeedbackGroup counts feedback rows sharing a predicted intent, verdict
// and correction.
type FeedbackGroup struct {
	PredictedIntent string
	IsCorrect       bool
	CorrectedIntent string
	Count           int64
}

// FeedbackStats is the raw aggregate the evaluation report is built from.
type FeedbackStats struct {
	TotalQueries int64
	Groups       []FeedbackGroup
}
