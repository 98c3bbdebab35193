// Package pipeline assembles the prediction engine from configuration. The
// API server and the intentctl tool share it so both classify identically.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	rediscache "github.com/intent-api/backend/internal/cache/redis"
	"github.com/intent-api/backend/internal/inference"
	"github.com/intent-api/backend/internal/query"
	"github.com/intent-api/backend/internal/storage"
	"github.com/intent-api/backend/internal/storage/backend"
	"github.com/intent-api/backend/internal/textproc"
	"github.com/intent-api/backend/internal/vocab"
	"github.com/intent-api/backend/pkg/config"
	"github.com/intent-api/backend/pkg/logger"
	"github.com/intent-api/backend/pkg/utils"
)

type Options struct {
	// WithStore opens the persistence gateway. Without it the engine can
	// only Classify.
	WithStore bool
	// WithCache enables the redis prediction cache when configured.
	WithCache bool
	// Lexicon overrides the english dictionary, mainly for tests.
	Lexicon textproc.Lexicon
}

// Pipeline holds the assembled engine and everything it owns.
type Pipeline struct {
	Engine *query.Engine
	Vocab  *vocab.Vocabulary
	Labels *vocab.LabelMapping
	Store  storage.Gateway
	Device string

	// Checks are the dependencies /ready reports on, keyed by name.
	Checks map[string]func(ctx context.Context) error

	closers []func() error
}

// Build loads the artifacts, resolves the scoring backend and wires the
// engine. Any failure here is fatal for the caller: the service must not
// start with a partial pipeline.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Pipeline, error) {
	p := &Pipeline{Checks: make(map[string]func(ctx context.Context) error)}

	v, err := vocab.Load(cfg.Artifacts.VocabPath)
	if err != nil {
		return nil, err
	}
	labels, err := vocab.LoadLabels(cfg.Artifacts.LabelsPath)
	if err != nil {
		return nil, err
	}
	p.Vocab = v
	p.Labels = labels

	logger.Info("Artifacts loaded",
		zap.Int("vocab_size", v.Size()),
		zap.Int("labels", labels.Len()),
	)

	lexicon := opts.Lexicon
	if lexicon == nil {
		golem, err := textproc.NewGolemLexicon()
		if err != nil {
			return nil, err
		}
		lexicon = golem
	}
	tagger, err := textproc.NewProseTagger()
	if err != nil {
		return nil, err
	}

	scorer, err := p.buildScorer(cfg, labels)
	if err != nil {
		p.Close()
		return nil, err
	}

	if opts.WithStore {
		store, err := backend.Open(ctx, cfg.Database)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.Store = store
		p.closers = append(p.closers, store.Close)
		p.Checks["database"] = store.Ping
	}

	var cache query.Cache
	if opts.WithCache && cfg.Redis.Enabled {
		c := p.buildCache(ctx, cfg, labels)
		p.closers = append(p.closers, c.Close)
		p.Checks["redis"] = c.Ping
		cache = c
	}

	p.Engine = query.NewEngine(
		textproc.NewNormalizer(tagger),
		textproc.NewLemmatizer(tagger, lexicon),
		v,
		inference.NewInvoker(scorer, labels),
		p.Store,
		cache,
	)

	return p, nil
}

func (p *Pipeline) buildScorer(cfg *config.Config, labels *vocab.LabelMapping) (inference.Scorer, error) {
	switch cfg.Model.Backend {
	case "remote":
		remote, err := inference.NewRemoteScorer(inference.RemoteConfig{
			BaseURL:   cfg.Model.RemoteURL,
			ModelName: cfg.Model.RemoteName,
			Timeout:   time.Duration(cfg.Model.TimeoutSec) * time.Second,
			Logger:    logger.Log,
		})
		if err != nil {
			return nil, err
		}
		p.Device = "remote"
		p.Checks["model"] = remote.Ready
		logger.Info("Using remote model server",
			zap.String("url", cfg.Model.RemoteURL),
			zap.String("model", cfg.Model.RemoteName),
		)
		return remote, nil

	case "onnx":
		libPath := cfg.Model.ORTLibraryPath
		if libPath == "" {
			libPath = inference.DefaultLibraryPath(cfg.Artifacts.ModelPath)
		}
		if err := inference.InitRuntime(libPath); err != nil {
			return nil, fmt.Errorf("failed to load onnx runtime from %s: %w", libPath, err)
		}

		device, err := inference.ResolveDevice(cfg.Model.Device, inference.ProbeONNXDevice)
		if err != nil {
			return nil, err
		}

		scorer, err := inference.NewONNXScorer(inference.ONNXConfig{
			ModelPath:      cfg.Artifacts.ModelPath,
			LibraryPath:    libPath,
			Device:         device,
			IntraOpThreads: cfg.Model.IntraOpThreads,
		})
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, scorer.Close)

		if scorer.NumClasses() != labels.Len() {
			return nil, fmt.Errorf("model has %d output classes but %d labels are loaded",
				scorer.NumClasses(), labels.Len())
		}

		p.Device = device.String()
		logger.Info("Model loaded",
			zap.String("path", cfg.Artifacts.ModelPath),
			zap.String("device", p.Device),
		)
		return scorer, nil

	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Model.Backend)
	}
}

// buildCache never fails: an unreachable redis only disables caching until
// it comes back.
func (p *Pipeline) buildCache(ctx context.Context, cfg *config.Config, labels *vocab.LabelMapping) *rediscache.Client {
	opts := rediscache.Options{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      time.Duration(cfg.Redis.TTLSec) * time.Second,
		Prefix:   CachePrefix(cfg, labels),
	}

	c, err := rediscache.NewClient(ctx, opts)
	if err != nil {
		logger.Warn("Redis unavailable, predictions will not be cached until it recovers", zap.Error(err))
		return rediscache.New(opts)
	}
	return c
}

// CachePrefix namespaces cached predictions by model identity so a new
// model or label set never serves stale entries.
func CachePrefix(cfg *config.Config, labels *vocab.LabelMapping) string {
	ident := append([]string{cfg.Model.Backend, cfg.Artifacts.ModelPath, cfg.Model.RemoteName}, labels.Labels()...)
	return "prediction:" + utils.HashTokens(ident)[:16]
}

// Close releases everything Build opened, in reverse order.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			logger.Warn("Failed to release pipeline resource", zap.Error(err))
		}
	}
	p.closers = nil
}
