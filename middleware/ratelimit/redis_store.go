package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/otpgate/services/logging"
	"go.uber.org/zap"
)

// RedisStore shares counters between instances. Redis errors fail open: the
// request is let through and the error is logged.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *logging.Service
}

func NewRedisStore(client *redis.Client, prefix string, logger *logging.Service) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (int, time.Time, bool) {
	var getCmd *redis.StringCmd
	var ttlCmd *redis.DurationCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, s.prefix+key)
		ttlCmd = pipe.PTTL(ctx, s.prefix+key)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return 0, time.Time{}, false
	}
	if err != nil {
		s.logError("rate limit lookup failed", err)
		return 0, time.Time{}, false
	}

	count, err := getCmd.Int()
	if err != nil {
		s.logError("rate limit counter is not a number", err)
		return 0, time.Time{}, false
	}

	ttl := ttlCmd.Val()
	if ttl <= 0 {
		return 0, time.Time{}, false
	}

	return count, time.Now().Add(ttl), true
}

func (s *RedisStore) Set(ctx context.Context, key string, count int, resetTime time.Time) {
	err := s.client.SetArgs(ctx, s.prefix+key, count, redis.SetArgs{ExpireAt: resetTime}).Err()
	if err != nil {
		s.logError("rate limit set failed", err)
	}
}

func (s *RedisStore) Increment(ctx context.Context, key string, resetTime time.Time) int {
	count, err := s.client.Incr(ctx, s.prefix+key).Result()
	if err != nil {
		s.logError("rate limit increment failed", err)
		return 0
	}

	if count == 1 {
		if err := s.client.ExpireAt(ctx, s.prefix+key, resetTime).Err(); err != nil {
			s.logError("rate limit expiry failed", err)
		}
	}

	return int(count)
}

func (s *RedisStore) Reset(ctx context.Context, key string) {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logError("rate limit reset failed", err)
	}
}

func (s *RedisStore) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, zap.Error(err))
	}
}
