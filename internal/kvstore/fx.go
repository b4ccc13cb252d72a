package kvstore

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/orderdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SQLModule serves the store from the gorm database.
var SQLModule = fx.Module("kvstore.sql",
	fx.Provide(NewSQLStore),
)

// RedisModule serves the store from Redis.
var RedisModule = fx.Module("kvstore.redis",
	fx.Provide(
		NewRedisClient,
		func(client *redis.Client, cfg config.Config) Store {
			return NewRedisStore(client, cfg.RedisNamespace)
		},
	),
)

// NewRedisClient connects to Redis and pings it on start.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
			}
			log.Info("redis connected", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}
