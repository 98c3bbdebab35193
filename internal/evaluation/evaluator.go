// Package evaluation measures how well the classifier does, either from the
// feedback users have left on live predictions or against a labelled
// dataset.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/intent-api/backend/internal/query"
	"github.com/intent-api/backend/internal/storage/models"
	"github.com/intent-api/backend/pkg/logger"
)

// StatsSource provides the aggregated feedback rows.
type StatsSource interface {
	FeedbackStats(ctx context.Context) (*models.FeedbackStats, error)
}

// Classifier runs the prediction pipeline without recording anything.
type Classifier interface {
	Classify(ctx context.Context, text string) (*query.Classification, error)
}

type Evaluator struct {
	stats          StatsSource
	topCorrections int
}

func NewEvaluator(stats StatsSource) *Evaluator {
	return &Evaluator{stats: stats, topCorrections: 10}
}

// SetTopCorrections sets how many corrections a report lists.
func (e *Evaluator) SetTopCorrections(n int) {
	e.topCorrections = n
}

type IntentStats struct {
	Intent    string  `json:"intent"`
	Correct   int64   `json:"correct"`
	Incorrect int64   `json:"incorrect"`
	Accuracy  float64 `json:"accuracy"`
}

type Correction struct {
	Predicted string `json:"predicted_intent"`
	Corrected string `json:"corrected_intent"`
	Count     int64  `json:"count"`
}

// FeedbackReport summarizes user feedback. Accuracy is over feedback rows,
// so a query judged twice counts twice.
type FeedbackReport struct {
	TotalQueries   int64         `json:"total_queries"`
	TotalFeedback  int64         `json:"total_feedback"`
	Correct        int64         `json:"correct"`
	Incorrect      int64         `json:"incorrect"`
	Accuracy       float64       `json:"accuracy"`
	Intents        []IntentStats `json:"intents"`
	TopCorrections []Correction  `json:"top_corrections"`
}

func (e *Evaluator) FeedbackReport(ctx context.Context) (*FeedbackReport, error) {
	stats, err := e.stats.FeedbackStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback stats: %w", err)
	}
	return buildFeedbackReport(stats, e.topCorrections), nil
}

func buildFeedbackReport(stats *models.FeedbackStats, topN int) *FeedbackReport {
	report := &FeedbackReport{
		TotalQueries:   stats.TotalQueries,
		Intents:        []IntentStats{},
		TopCorrections: []Correction{},
	}

	perIntent := map[string]*IntentStats{}
	for _, g := range stats.Groups {
		s, ok := perIntent[g.PredictedIntent]
		if !ok {
			s = &IntentStats{Intent: g.PredictedIntent}
			perIntent[g.PredictedIntent] = s
		}

		report.TotalFeedback += g.Count
		if g.IsCorrect {
			s.Correct += g.Count
			report.Correct += g.Count
			continue
		}

		s.Incorrect += g.Count
		report.Incorrect += g.Count
		if g.CorrectedIntent != "" {
			report.TopCorrections = append(report.TopCorrections, Correction{
				Predicted: g.PredictedIntent,
				Corrected: g.CorrectedIntent,
				Count:     g.Count,
			})
		}
	}

	report.Accuracy = ratio(report.Correct, report.TotalFeedback)

	for _, s := range perIntent {
		s.Accuracy = ratio(s.Correct, s.Correct+s.Incorrect)
		report.Intents = append(report.Intents, *s)
	}
	sort.Slice(report.Intents, func(i, j int) bool {
		return report.Intents[i].Intent < report.Intents[j].Intent
	})

	sort.SliceStable(report.TopCorrections, func(i, j int) bool {
		a, b := report.TopCorrections[i], report.TopCorrections[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Predicted != b.Predicted {
			return a.Predicted < b.Predicted
		}
		return a.Corrected < b.Corrected
	})
	if len(report.TopCorrections) > topN {
		report.TopCorrections = report.TopCorrections[:topN]
	}

	return report
}

type DatasetItem struct {
	Text   string `json:"text"`
	Intent string `json:"intent"`
}

type EvaluationDataset struct {
	Items []DatasetItem `json:"items"`
}

type Misclassification struct {
	Text       string  `json:"text"`
	Expected   string  `json:"expected"`
	Predicted  string  `json:"predicted"`
	Confidence float64 `json:"confidence"`
}

type DatasetReport struct {
	Total         int                 `json:"total"`
	Correct       int                 `json:"correct"`
	Failed        int                 `json:"failed"`
	Accuracy      float64             `json:"accuracy"`
	AvgConfidence float64             `json:"avg_confidence"`
	Intents       []IntentStats       `json:"intents"`
	Misclassified []Misclassification `json:"misclassified"`
}

// RunDatasetEvaluation classifies every item and compares the result with
// its expected intent. Items the pipeline fails on are counted as Failed
// and excluded from accuracy.
func RunDatasetEvaluation(ctx context.Context, classifier Classifier, dataset *EvaluationDataset) (*DatasetReport, error) {
	logger.Info("Running dataset evaluation", zap.Int("items", len(dataset.Items)))

	report := &DatasetReport{
		Total:         len(dataset.Items),
		Misclassified: []Misclassification{},
	}
	perIntent := map[string]*IntentStats{}
	var totalConfidence float64
	scored := 0

	for i, item := range dataset.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := classifier.Classify(ctx, item.Text)
		if err != nil {
			logger.Error("Failed to classify item", zap.Int("index", i), zap.Error(err))
			report.Failed++
			continue
		}
		scored++
		totalConfidence += result.Confidence

		s, ok := perIntent[item.Intent]
		if !ok {
			s = &IntentStats{Intent: item.Intent}
			perIntent[item.Intent] = s
		}

		if result.Intent == item.Intent {
			report.Correct++
			s.Correct++
			continue
		}
		s.Incorrect++
		report.Misclassified = append(report.Misclassified, Misclassification{
			Text:       item.Text,
			Expected:   item.Intent,
			Predicted:  result.Intent,
			Confidence: result.Confidence,
		})
	}

	report.Accuracy = ratio(int64(report.Correct), int64(scored))
	if scored > 0 {
		report.AvgConfidence = totalConfidence / float64(scored)
	}

	for _, s := range perIntent {
		s.Accuracy = ratio(s.Correct, s.Correct+s.Incorrect)
		report.Intents = append(report.Intents, *s)
	}
	sort.Slice(report.Intents, func(i, j int) bool {
		return report.Intents[i].Intent < report.Intents[j].Intent
	})

	logger.Info("Dataset evaluation completed",
		zap.Int("total", report.Total),
		zap.Int("correct", report.Correct),
		zap.Int("failed", report.Failed),
		zap.Float64("accuracy", report.Accuracy),
	)

	return report, nil
}

// LoadDataset reads a labelled dataset: either {"items": [...]} or a bare
// JSON array of {"text", "intent"} objects.
func LoadDataset(path string) (*EvaluationDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var dataset EvaluationDataset
	if err := json.Unmarshal(data, &dataset.Items); err != nil {
		if err := json.Unmarshal(data, &dataset); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
		}
	}

	for i, item := range dataset.Items {
		if item.Text == "" || item.Intent == "" {
			return nil, fmt.Errorf("dataset item %d: text and intent are required", i)
		}
	}
	return &dataset, nil
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// GenerateReport renders a feedback report as plain text.
func GenerateReport(report *FeedbackReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, `
Feedback Report
===============

Total Queries:  %d
Total Feedback: %d
- Correct:   %d
- Incorrect: %d
Accuracy: %.1f%%
`,
		report.TotalQueries,
		report.TotalFeedback,
		report.Correct,
		report.Incorrect,
		report.Accuracy*100,
	)

	if len(report.Intents) > 0 {
		b.WriteString("\nPer Intent:\n")
		for _, s := range report.Intents {
			fmt.Fprintf(&b, "- %s: %d correct, %d incorrect (%.1f%%)\n", s.Intent, s.Correct, s.Incorrect, s.Accuracy*100)
		}
	}

	if len(report.TopCorrections) > 0 {
		b.WriteString("\nTop Corrections:\n")
		for _, c := range report.TopCorrections {
			fmt.Fprintf(&b, "- %s -> %s: %d\n", c.Predicted, c.Corrected, c.Count)
		}
	}

	return b.String()
}

// GenerateDatasetReport renders a dataset evaluation as plain text.
func GenerateDatasetReport(report *DatasetReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, `
Dataset Evaluation
==================

Items:    %d
Correct:  %d
Failed:   %d
Accuracy: %.1f%%
Average Confidence: %.3f
`,
		report.Total,
		report.Correct,
		report.Failed,
		report.Accuracy*100,
		report.AvgConfidence,
	)

	if len(report.Intents) > 0 {
		b.WriteString("\nPer Intent:\n")
		for _, s := range report.Intents {
			fmt.Fprintf(&b, "- %s: %d/%d (%.1f%%)\n", s.Intent, s.Correct, s.Correct+s.Incorrect, s.Accuracy*100)
		}
	}

	return b.String()
}
