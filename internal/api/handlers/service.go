package handlers

import (
	"context"

	"github.com/intent-api/backend/internal/evaluation"
	"github.com/intent-api/backend/internal/query"
)

// PredictionService is the part of the query engine the handlers use.
type PredictionService interface {
	Predict(ctx context.Context, text string) (*query.PredictResponse, error)
	SubmitFeedback(ctx context.Context, queryID int64, isCorrect bool, correctedIntent *string) error
	LookupQuery(ctx context.Context, id int64) (*query.QueryDetail, error)
}

type ReportService interface {
	FeedbackReport(ctx context.Context) (*evaluation.FeedbackReport, error)
}

// PredictResponse is the predict endpoint's body.
type PredictResponse struct {
	PredictedIntent string  `json:"predicted_intent"`
	ConfidenceScore float64 `json:"confidence_score"`
	QueryID         int64   `json:"query_id"`
}

func toPredictResponse(r *query.PredictResponse) PredictResponse {
	return PredictResponse{
		PredictedIntent: r.Intent,
		ConfidenceScore: r.Confidence,
		QueryID:         r.QueryID,
	}
}
