package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps the challenge as a JSON value under one key. The key has
// no TTL; expiry is decided by the store on read.
type RedisBackend struct {
	client *redis.Client
	key    string
}

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{
		client: client,
		key:    prefix + "challenge:" + ChallengeID,
	}
}

func (b *RedisBackend) Key() string {
	return b.key
}

func (b *RedisBackend) Load(ctx context.Context) (*Challenge, error) {
	raw, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var challenge Challenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}
	challenge.ID = ChallengeID
	return &challenge, nil
}

func (b *RedisBackend) Save(ctx context.Context, challenge *Challenge) error {
	raw, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}
	return b.client.Set(ctx, b.key, raw, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context) error {
	return b.client.Del(ctx, b.key).Err()
}
