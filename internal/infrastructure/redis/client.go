package redis

import (
	"context"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/internal/config"
)

const connectTimeout = 5 * time.Second

// Options parses the connection URL. An explicit password or database overrides the URL.
func Options(cfg config.RedisConfig) (*goRedis.Options, error) {
	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return opts, nil
}

// NewClient connects to the Redis instance that holds actor sessions and carries the
// realtime fan-out. Subscribers use their own connections, so pub/sub is checked
// separately from the command pool; a proxy that blocks SUBSCRIBE fails here instead
// of on the first workspace.
func NewClient(ctx context.Context, cfg config.RedisConfig, healthChannel string, logger *zap.Logger) (*goRedis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := goRedis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ps := client.Subscribe(ctx, healthChannel)
	_, err = ps.Receive(ctx)
	ps.Close()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("redis pub/sub unavailable: %w", err)
	}

	logger.Info("redis connected",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize))
	return client, nil
}
