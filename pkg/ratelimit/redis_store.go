package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisMaxRetries = 8

// RedisStore keeps each key's events in a sorted set scored by time so that
// every replica sees the same window. Updates run as WATCH/MULTI optimistic
// transactions and are retried when the key changes underneath them.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore namespacing its keys under prefix
// ("rl" when empty).
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Ping checks that the Redis server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]time.Time, error) {
	members, err := s.client.ZRange(ctx, s.key(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ratelimit: read %q: %w", key, err)
	}
	return decodeMembers(members)
}

func (s *RedisStore) Update(ctx context.Context, key string, ttl time.Duration, fn func([]time.Time) []time.Time) error {
	rkey := s.key(key)

	for i := 0; i < redisMaxRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			members, err := tx.ZRange(ctx, rkey, 0, -1).Result()
			if err != nil {
				return err
			}
			current, err := decodeMembers(members)
			if err != nil {
				return err
			}

			next := fn(current)

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, rkey)
				if len(next) == 0 {
					return nil
				}
				pipe.ZAdd(ctx, rkey, encodeMembers(next)...)
				pipe.PExpire(ctx, rkey, ttl)
				return nil
			})
			return err
		}, rkey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("ratelimit: update %q: %w", key, err)
		}
		return nil
	}

	return ErrContention
}

// Members are "<unix nanos>:<index>". The index keeps events recorded in the
// same nanosecond distinct; the score orders them. Scores are milliseconds
// because a float64 cannot hold nanosecond timestamps exactly.
func encodeMembers(events []time.Time) []redis.Z {
	zs := make([]redis.Z, len(events))
	for i, ts := range events {
		zs[i] = redis.Z{
			Score:  float64(ts.UnixMilli()),
			Member: strconv.FormatInt(ts.UnixNano(), 10) + ":" + strconv.Itoa(i),
		}
	}
	return zs
}

func decodeMembers(members []string) ([]time.Time, error) {
	if len(members) == 0 {
		return nil, nil
	}
	out := make([]time.Time, 0, len(members))
	for _, m := range members {
		nanos, _, _ := strings.Cut(m, ":")
		n, err := strconv.ParseInt(nanos, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ratelimit: corrupt member %q: %w", m, err)
		}
		out = append(out, time.Unix(0, n))
	}
	return out, nil
}
