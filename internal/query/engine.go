// Package query runs the prediction pipeline end to end: normalize,
// lemmatize, encode, score and record.
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/intent-api/backend/internal/inference"
	"github.com/intent-api/backend/internal/metrics"
	"github.com/intent-api/backend/internal/storage"
	"github.com/intent-api/backend/internal/storage/models"
	"github.com/intent-api/backend/pkg/logger"
	"github.com/intent-api/backend/pkg/utils"
)

var ErrPipeline = errors.New("prediction pipeline failed")

type Normalizer interface {
	Normalize(text string) (string, error)
}

type Lemmatizer interface {
	Lemmatize(cleaned string) ([]string, error)
}

type Encoder interface {
	Encode(lemmas []string) [][]int64
	UnknownID() int64
}

type Predictor interface {
	Predict(ctx context.Context, batch [][]int64) (inference.Prediction, error)
}

// Cache stores predictions keyed by the lemma sequence. Implementations may
// fail; the engine treats any cache error as a miss.
type Cache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type Engine struct {
	normalizer Normalizer
	lemmatizer Lemmatizer
	encoder    Encoder
	predictor  Predictor
	store      storage.Gateway
	cache      Cache
	now        func() time.Time
}

// Classification is the pipeline result before persistence.
type Classification struct {
	Cleaned    string
	Lemmas     []string
	Encoded    [][]int64
	Intent     string
	Confidence float64
	Cached     bool
}

type PredictResponse struct {
	QueryID    int64
	Intent     string
	Confidence float64
	Cached     bool
	LatencyMS  int
}

// QueryDetail is a stored query with every feedback row left on it.
type QueryDetail struct {
	Query    *models.QueryRecord     `json:"query"`
	Feedback []models.FeedbackRecord `json:"feedback"`
}

type cachedPrediction struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// NewEngine wires the pipeline stages. store may be nil for offline use, in
// which case only Classify is available. cache may be nil.
func NewEngine(normalizer Normalizer, lemmatizer Lemmatizer, encoder Encoder, predictor Predictor, store storage.Gateway, cache Cache) *Engine {
	return &Engine{
		normalizer: normalizer,
		lemmatizer: lemmatizer,
		encoder:    encoder,
		predictor:  predictor,
		store:      store,
		cache:      cache,
		now:        time.Now,
	}
}

// Classify runs the pipeline without recording anything.
func (e *Engine) Classify(ctx context.Context, text string) (*Classification, error) {
	cleaned, err := e.normalizer.Normalize(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	lemmas, err := e.lemmatizer.Lemmatize(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	encoded := e.encoder.Encode(lemmas)
	observeUnknownRatio(lemmas, encoded, e.encoder.UnknownID())

	result := &Classification{
		Cleaned: cleaned,
		Lemmas:  lemmas,
		Encoded: encoded,
	}

	key := utils.HashTokens(lemmas)
	if e.lookupCache(ctx, key, result) {
		return result, nil
	}

	start := time.Now()
	pred, err := e.predictor.Predict(ctx, encoded)
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	result.Intent = pred.Intent
	result.Confidence = pred.Confidence
	e.storeCache(ctx, key, result)

	return result, nil
}

// Predict classifies text and records the query. A failure at any stage
// returns an error and no partial result.
func (e *Engine) Predict(ctx context.Context, text string) (*PredictResponse, error) {
	startTime := time.Now()

	result, err := e.Classify(ctx, text)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues("error").Inc()
		logger.Error("Prediction failed", zap.Error(err))
		return nil, err
	}

	queryID, err := e.store.RecordQuery(ctx, text, result.Intent, result.Confidence, e.now())
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues("error").Inc()
		metrics.PersistenceErrors.WithLabelValues("user_queries").Inc()
		return nil, err
	}

	source := "model"
	if result.Cached {
		source = "cache"
	}
	latency := time.Since(startTime)

	metrics.PredictionsTotal.WithLabelValues("success").Inc()
	metrics.PredictionDuration.WithLabelValues(source).Observe(latency.Seconds())
	metrics.PredictedIntents.WithLabelValues(result.Intent).Inc()
	metrics.ConfidenceScore.Observe(result.Confidence)

	logger.Info("Prediction completed",
		zap.Int64("query_id", queryID),
		zap.String("intent", result.Intent),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("cached", result.Cached),
		zap.Duration("latency", latency),
	)

	return &PredictResponse{
		QueryID:    queryID,
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Cached:     result.Cached,
		LatencyMS:  int(latency.Milliseconds()),
	}, nil
}

// SubmitFeedback records a verdict on an earlier prediction. Input must
// already be validated.
func (e *Engine) SubmitFeedback(ctx context.Context, queryID int64, isCorrect bool, correctedIntent *string) error {
	if err := e.store.RecordFeedback(ctx, queryID, isCorrect, correctedIntent, e.now()); err != nil {
		metrics.PersistenceErrors.WithLabelValues("feedback").Inc()
		return err
	}
	metrics.FeedbackTotal.WithLabelValues(strconv.FormatBool(isCorrect)).Inc()
	return nil
}

// LookupQuery returns a stored query and its feedback.
func (e *Engine) LookupQuery(ctx context.Context, id int64) (*QueryDetail, error) {
	q, err := e.store.GetQuery(ctx, id)
	if err != nil {
		return nil, err
	}
	fb, err := e.store.ListFeedback(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QueryDetail{Query: q, Feedback: fb}, nil
}

func (e *Engine) lookupCache(ctx context.Context, key string, result *Classification) bool {
	if e.cache == nil {
		return false
	}

	var cached cachedPrediction
	hit, err := e.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.Warn("Prediction cache read failed", zap.Error(err))
		metrics.CacheMisses.WithLabelValues("prediction").Inc()
		return false
	}
	if !hit {
		metrics.CacheMisses.WithLabelValues("prediction").Inc()
		return false
	}

	metrics.CacheHits.WithLabelValues("prediction").Inc()
	result.Intent = cached.Intent
	result.Confidence = cached.Confidence
	result.Cached = true
	return true
}

func (e *Engine) storeCache(ctx context.Context, key string, result *Classification) {
	if e.cache == nil {
		return
	}
	err := e.cache.Set(ctx, key, cachedPrediction{Intent: result.Intent, Confidence: result.Confidence})
	if err != nil {
		logger.Warn("Prediction cache write failed", zap.Error(err))
	}
}

func observeUnknownRatio(lemmas []string, encoded [][]int64, unk int64) {
	if len(lemmas) == 0 || len(encoded) == 0 {
		return
	}
	unknown := 0
	for _, id := range encoded[0] {
		if id == unk {
			unknown++
		}
	}
	metrics.UnknownTokenRatio.Observe(float64(unknown) / float64(len(encoded[0])))
}
