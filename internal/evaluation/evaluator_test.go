package evaluation

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/intent-api/backend/internal/query"
	"github.com/intent-api/backend/internal/storage/models"
)

type fakeStats struct {
	stats *models.FeedbackStats
	err   error
}

func (f fakeStats) FeedbackStats(ctx context.Context) (*models.FeedbackStats, error) {
	return f.stats, f.err
}

func TestFeedbackReport(t *testing.T) {
	e := NewEvaluator(fakeStats{stats: &models.FeedbackStats{
		TotalQueries: 10,
		Groups: []models.FeedbackGroup{
			{PredictedIntent: "cancel_order", IsCorrect: true, Count: 3},
			{PredictedIntent: "cancel_order", IsCorrect: false, CorrectedIntent: "get_refund", Count: 1},
			{PredictedIntent: "track_order", IsCorrect: true, Count: 2},
			{PredictedIntent: "track_order", IsCorrect: false, CorrectedIntent: "delivery_period", Count: 2},
		},
	}})

	r, err := e.FeedbackReport(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if r.TotalQueries != 10 || r.TotalFeedback != 8 || r.Correct != 5 || r.Incorrect != 3 {
		t.Errorf("totals = %+v", r)
	}
	if math.Abs(r.Accuracy-0.625) > 1e-9 {
		t.Errorf("Accuracy = %v, want 0.625", r.Accuracy)
	}
	if len(r.Intents) != 2 || r.Intents[0].Intent != "cancel_order" || r.Intents[0].Accuracy != 0.75 {
		t.Errorf("Intents = %+v", r.Intents)
	}
	if len(r.TopCorrections) != 2 || r.TopCorrections[0].Corrected != "delivery_period" {
		t.Errorf("TopCorrections = %+v, want delivery_period first", r.TopCorrections)
	}

	text := GenerateReport(r)
	for _, want := range []string{"Accuracy: 62.5%", "track_order -> delivery_period: 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("report text missing %q:\n%s", want, text)
		}
	}
}

func TestFeedbackReportEmpty(t *testing.T) {
	r, err := NewEvaluator(fakeStats{stats: &models.FeedbackStats{}}).FeedbackReport(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Accuracy != 0 || r.Intents == nil || r.TopCorrections == nil {
		t.Errorf("empty report = %+v, want zero accuracy and empty slices", r)
	}
}

func TestFeedbackReportError(t *testing.T) {
	boom := errors.New("db down")
	if _, err := NewEvaluator(fakeStats{err: boom}).FeedbackReport(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestTopCorrectionsTruncated(t *testing.T) {
	stats := &models.FeedbackStats{}
	for _, c := range []string{"a", "b", "c", "d"} {
		stats.Groups = append(stats.Groups, models.FeedbackGroup{PredictedIntent: "x", CorrectedIntent: c, Count: 1})
	}
	r := buildFeedbackReport(stats, 2)
	if len(r.TopCorrections) != 2 || r.TopCorrections[0].Corrected != "a" {
		t.Errorf("TopCorrections = %+v", r.TopCorrections)
	}
}

type keywordClassifier map[string]string

func (k keywordClassifier) Classify(ctx context.Context, text string) (*query.Classification, error) {
	for word, intent := range k {
		if strings.Contains(text, word) {
			return &query.Classification{Intent: intent, Confidence: 0.8}, nil
		}
	}
	if strings.Contains(text, "fail") {
		return nil, errors.New("pipeline failed")
	}
	return &query.Classification{Intent: "other", Confidence: 0.2}, nil
}

func TestRunDatasetEvaluation(t *testing.T) {
	classifier := keywordClassifier{"cancel": "cancel_order", "track": "track_order"}
	dataset := &EvaluationDataset{Items: []DatasetItem{
		{Text: "cancel my order", Intent: "cancel_order"},
		{Text: "track the parcel", Intent: "track_order"},
		{Text: "where is it", Intent: "track_order"},
		{Text: "this will fail", Intent: "track_order"},
	}}

	r, err := RunDatasetEvaluation(context.Background(), classifier, dataset)
	if err != nil {
		t.Fatal(err)
	}
	if r.Total != 4 || r.Correct != 2 || r.Failed != 1 {
		t.Errorf("counts = %+v", r)
	}
	if math.Abs(r.Accuracy-2.0/3.0) > 1e-9 {
		t.Errorf("Accuracy = %v, want 2/3", r.Accuracy)
	}
	if len(r.Misclassified) != 1 || r.Misclassified[0].Predicted != "other" {
		t.Errorf("Misclassified = %+v", r.Misclassified)
	}
	if !strings.Contains(GenerateDatasetReport(r), "Accuracy: 66.7%") {
		t.Error("dataset report text missing accuracy")
	}
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	for _, p := range []string{
		write("array.json", `[{"text":"cancel it","intent":"cancel_order"}]`),
		write("object.json", `{"items":[{"text":"cancel it","intent":"cancel_order"}]}`),
	} {
		ds, err := LoadDataset(p)
		if err != nil {
			t.Fatalf("LoadDataset(%s): %v", filepath.Base(p), err)
		}
		if len(ds.Items) != 1 || ds.Items[0].Intent != "cancel_order" {
			t.Errorf("%s: items = %+v", filepath.Base(p), ds.Items)
		}
	}

	if _, err := LoadDataset(write("bad.json", `[{"text":""}]`)); err == nil {
		t.Error("expected error for item without intent")
	}
	if _, err := LoadDataset(write("garbage.json", `nope`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
