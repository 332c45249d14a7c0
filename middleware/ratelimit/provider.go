package ratelimit

import (
	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type StoreParams struct {
	fx.In

	Config *config.Config
	Redis  *redis.Client `optional:"true"`
	Logger *logging.Service
}

func ProvideRateLimitStore(p StoreParams) Store {
	if p.Config.RateLimit.Store == "redis" && p.Redis == nil && p.Logger != nil {
		p.Logger.Warn("redis rate limit store requested without a redis client, using memory",
			zap.String("store", p.Config.RateLimit.Store))
	}
	return NewStore(&p.Config.RateLimit, p.Redis, p.Config.Redis.Prefix, p.Logger)
}
