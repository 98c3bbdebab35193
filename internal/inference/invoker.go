// Package inference runs the trained intent classifier and turns its raw
// scores into a labelled prediction.
package inference

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/intent-api/backend/internal/vocab"
)

var ErrInference = errors.New("inference failed")

// Scorer runs the classifier network on an encoded batch and returns the
// unnormalized class scores for its single row.
type Scorer interface {
	Score(ctx context.Context, batch [][]int64) ([]float32, error)
}

// Prediction is the outcome of one classification.
type Prediction struct {
	Intent        string
	Confidence    float64
	ClassIndex    int
	Probabilities []float64
}

// Invoker combines a Scorer with the label mapping the model was trained on.
type Invoker struct {
	scorer Scorer
	labels *vocab.LabelMapping
}

func NewInvoker(scorer Scorer, labels *vocab.LabelMapping) *Invoker {
	return &Invoker{scorer: scorer, labels: labels}
}

// Predict scores batch and returns the most probable intent with its
// softmax probability.
func (i *Invoker) Predict(ctx context.Context, batch [][]int64) (Prediction, error) {
	if len(batch) != 1 || len(batch[0]) == 0 {
		return Prediction{}, fmt.Errorf("%w: expected one non-empty row, got %d rows", ErrInference, len(batch))
	}

	scores, err := i.scorer.Score(ctx, batch)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrInference, err)
	}

	if len(scores) != i.labels.Len() {
		return Prediction{}, fmt.Errorf("%w: model returned %d scores for %d labels",
			ErrInference, len(scores), i.labels.Len())
	}

	probs, err := Softmax(scores)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrInference, err)
	}

	idx := Argmax(probs)
	intent, err := i.labels.Label(idx)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrInference, err)
	}

	return Prediction{
		Intent:        intent,
		Confidence:    probs[idx],
		ClassIndex:    idx,
		Probabilities: probs,
	}, nil
}

// Softmax converts scores to probabilities. The maximum is subtracted
// before exponentiation so large scores do not overflow.
func Softmax(scores []float32) ([]float64, error) {
	if len(scores) == 0 {
		return nil, errors.New("softmax of empty score vector")
	}

	peak := math.Inf(-1)
	for _, s := range scores {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite score %v", s)
		}
		if v > peak {
			peak = v
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(float64(s) - peak)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// Argmax returns the index of the largest value. Ties go to the lowest index.
func Argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
