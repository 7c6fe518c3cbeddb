// Package cache provides the Redis-backed cache service for the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/observability"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Service is the cache dependency handed to repositories and handlers.
// All methods are safe to call when Redis is unavailable; they degrade to
// cache-miss behavior.
type Service struct {
	client *redis.Client
}

// New connects to Redis at addr (host:port or redis:// URL) and returns the
// cache service. Connection failure is not fatal: the service runs uncached.
func New(addr string) *Service {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			middleware.Logger.Warn("invalid REDIS_URL, continuing without cache",
				slog.String("addr", addr), slog.String("error", err.Error()))
			return &Service{}
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unavailable, continuing without cache",
			slog.String("error", err.Error()))
		return &Service{}
	}

	middleware.Logger.Info("Redis connected successfully")
	return &Service{client: client}
}

// NewWithClient wraps an existing Redis client (used by tests with miniredis).
func NewWithClient(client *redis.Client) *Service {
	return &Service{client: client}
}

// Client exposes the underlying Redis client, nil when Redis is unavailable.
// Used by consumers that need raw Redis (rate limits, tickets, pub/sub).
func (s *Service) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// Available reports whether a Redis connection is held.
func (s *Service) Available() bool {
	return s != nil && s.client != nil
}

// Ping checks Redis health.
func (s *Service) Ping(ctx context.Context) error {
	if !s.Available() {
		return errors.New("redis unavailable")
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *Service) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}
