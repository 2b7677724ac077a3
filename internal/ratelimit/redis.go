package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps windows in a shared Redis, one sorted set per identity
// scored by request time. Required for multi-instance deployments where all
// gateways must observe the same counts.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a store over an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, keyPrefix: "sqlgate:rl:"}
}

// Hit implements Store atomically via a single pipeline: evict expired
// members, add this request, count, and refresh the key TTL.
func (s *RedisStore) Hit(ctx context.Context, identity string, now time.Time, window time.Duration) (int, time.Time, error) {
	key := s.keyPrefix + identity
	cutoff := now.Add(-window).UnixNano()
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.Expire(ctx, key, window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := int(countCmd.Val())
	oldest := now
	if members := oldestCmd.Val(); len(members) > 0 {
		oldest = time.Unix(0, int64(members[0].Score))
	}
	return count, oldest, nil
}
