package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const redisPingTimeout = 5 * time.Second

// ProvideRedis connects to the configured redis server and fails fast when
// it does not answer a ping.
func ProvideRedis(cfg *config.Config, log *logging.Service) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.Error("failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	log.Info("redis connection established",
		zap.String("addr", cfg.Redis.Addr),
		zap.Int("db", cfg.Redis.DB))

	return client, nil
}

func ProvideRedisFx(lc fx.Lifecycle, cfg *config.Config, log *logging.Service) (*redis.Client, error) {
	client, err := ProvideRedis(cfg, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return client, nil
}

var RedisModule = fx.Options(
	fx.Provide(ProvideRedisFx),
)
