package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/intent-api/backend/pkg/circuitbreaker"
	"go.uber.org/zap"
)

// RemoteConfig points at a model server speaking the KServe v2 inference
// protocol (Triton, KServe, Seldon MLServer).
type RemoteConfig struct {
	BaseURL   string
	ModelName string
	InputName string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// RemoteScorer scores batches on a remote model server. Calls go through a
// circuit breaker so an unhealthy server fails fast.
type RemoteScorer struct {
	inferURL   string
	readyURL   string
	inputName  string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

type v2Tensor struct {
	Name     string  `json:"name"`
	Shape    []int64 `json:"shape"`
	Datatype string  `json:"datatype"`
	Data     any     `json:"data"`
}

type v2Request struct {
	Inputs []v2Tensor `json:"inputs"`
}

type v2Output struct {
	Name     string    `json:"name"`
	Shape    []int64   `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float32 `json:"data"`
}

type v2Response struct {
	ModelName string     `json:"model_name"`
	Outputs   []v2Output `json:"outputs"`
	Error     string     `json:"error,omitempty"`
}

func NewRemoteScorer(cfg RemoteConfig) (*RemoteScorer, error) {
	if cfg.BaseURL == "" || cfg.ModelName == "" {
		return nil, errors.New("remote scorer: base URL and model name are required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("remote scorer: invalid base URL: %w", err)
	}
	if cfg.InputName == "" {
		cfg.InputName = "input_ids"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	modelPath, err := url.JoinPath(cfg.BaseURL, "v2", "models", cfg.ModelName)
	if err != nil {
		return nil, fmt.Errorf("remote scorer: invalid base URL: %w", err)
	}

	return &RemoteScorer{
		inferURL:   modelPath + "/infer",
		readyURL:   modelPath + "/ready",
		inputName:  cfg.InputName,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.New("remote-scorer", circuitbreaker.Config{
			FailureThreshold: 5,
			Timeout:          30 * time.Second,
			IsFailure: func(err error) bool {
				return err != nil && !errors.Is(err, context.Canceled)
			},
			Logger: log,
		}),
	}, nil
}

func (r *RemoteScorer) Score(ctx context.Context, batch [][]int64) ([]float32, error) {
	if len(batch) != 1 {
		return nil, fmt.Errorf("remote scorer: expected batch of 1, got %d", len(batch))
	}
	return circuitbreaker.ExecuteWithResult(ctx, r.breaker, func(ctx context.Context) ([]float32, error) {
		return r.infer(ctx, batch[0])
	})
}

func (r *RemoteScorer) infer(ctx context.Context, row []int64) ([]float32, error) {
	body, err := json.Marshal(v2Request{Inputs: []v2Tensor{{
		Name:     r.inputName,
		Shape:    []int64{1, int64(len(row))},
		Datatype: "INT64",
		Data:     row,
	}}})
	if err != nil {
		return nil, fmt.Errorf("remote scorer: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.inferURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote scorer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote scorer: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("remote scorer: read response: %w", err)
	}

	var out v2Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("remote scorer: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("remote scorer: server returned %d: %s", resp.StatusCode, msg)
	}
	if len(out.Outputs) == 0 {
		return nil, errors.New("remote scorer: response has no outputs")
	}
	if dt := out.Outputs[0].Datatype; dt != "" && dt != "FP32" {
		return nil, fmt.Errorf("remote scorer: unsupported output datatype %s", dt)
	}
	return out.Outputs[0].Data, nil
}

// Ready asks the model server whether the model is loaded.
func (r *RemoteScorer) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.readyURL, nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote scorer: readiness check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote scorer: model not ready (status %d)", resp.StatusCode)
	}
	return nil
}

func (r *RemoteScorer) BreakerState() circuitbreaker.State {
	return r.breaker.State()
}
