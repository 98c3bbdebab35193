package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/intent-api/backend/pkg/circuitbreaker"
	"github.com/intent-api/backend/pkg/logger"
)

type Options struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
	// Prefix namespaces keys, e.g. by model version, so a redeployed model
	// never reads predictions cached by the previous one.
	Prefix string
}

// Client caches predictions in redis. Every call goes through a circuit
// breaker so a dead redis costs one fast error instead of a dial timeout
// per request.
type Client struct {
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	breaker *circuitbreaker.CircuitBreaker
}

// New builds a client without contacting redis.
func New(opts Options) *Client {
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		MaxRetries:   -1,
	})

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "prediction"
	}

	return &Client{
		client: client,
		ttl:    ttl,
		prefix: prefix,
		breaker: circuitbreaker.New("redis-cache", circuitbreaker.Config{
			FailureThreshold: 5,
			Timeout:          30 * time.Second,
			Logger:           logger.Log,
		}),
	}
}

// NewClient builds a client and verifies redis answers.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	c := New(opts)

	if _, err := c.client.Ping(ctx).Result(); err != nil {
		c.client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", c.client.Options().Addr))

	return c, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) key(k string) string {
	return c.prefix + ":" + k
}

// Get loads the value cached under key into out. A miss returns false and
// no error.
func (c *Client) Get(ctx context.Context, key string, out any) (bool, error) {
	data, err := circuitbreaker.ExecuteWithResult(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		data, err := c.client.Get(ctx, c.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		return false, fmt.Errorf("failed to get prediction cache: %w", err)
	}
	if data == nil {
		return false, nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached prediction: %w", err)
	}

	logger.Debug("Prediction cache hit", zap.String("key", key))
	return true, nil
}

func (c *Client) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}

	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, c.key(key), data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set prediction cache: %w", err)
	}

	logger.Debug("Prediction cached", zap.String("key", key), zap.Duration("ttl", c.ttl))
	return nil
}

// Invalidate drops every key under this client's prefix.
func (c *Client) Invalidate(ctx context.Context) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, c.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
			continue
		}
		removed++
	}

	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Prediction cache invalidated", zap.Int("removed", removed))
	return removed, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}
