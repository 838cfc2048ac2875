package persistence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/config"
)

// Redis holds the exchange code client. A zero Redis means codes fall back
// to postgres or memory.
type Redis struct {
	Client *redis.Client
}

// NewRedis creates a client when an address is set. An unreachable server is
// logged, not fatal; the client reconnects on first use.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; exchange codes use the fallback store")
		return &Redis{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return &Redis{Client: client}
}

func (r *Redis) Close() {
	if r.Configured() {
		_ = r.Client.Close()
	}
}

// Ping backs the /health/redis probe.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Configured() {
		return fmt.Errorf("redis: %w", ErrNotConfigured)
	}
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Configured() bool {
	return r != nil && r.Client != nil
}
