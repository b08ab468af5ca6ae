// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package window

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore is the external window backend: one sorted set per user keyed
// by timestamp score. A Lua script makes the record-prune-count-earliest
// pass atomic per key, and a PEXPIRE on every insert gives idle eviction
// for free via key TTL.
type RedisStore struct {
	rdb    *redis.Client
	idle   time.Duration
	script *redis.Script
}

// observeScript performs the full Observe pass atomically. Scores and
// cutoffs are microsecond timestamps; members get a per-key sequence suffix
// so identical timestamps from concurrent ingestions never collapse into
// one entry.
var observeScript = redis.NewScript(`
local key = KEYS[1]
local ts = tonumber(ARGV[1])
local cutoff = tonumber(ARGV[2])
local idle_ms = tonumber(ARGV[3])

local seq = redis.call('INCR', key .. ':seq')
redis.call('ZADD', key, ts, ts .. ':' .. seq)
redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. cutoff)
local count = redis.call('ZCARD', key)
local earliest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')

redis.call('PEXPIRE', key, idle_ms)
redis.call('PEXPIRE', key .. ':seq', idle_ms)

return {count, earliest[2] or '0'}
`)

// NewRedisStore creates a Redis-backed window store. idleEviction becomes
// the key TTL, refreshed on every insert.
func NewRedisStore(rdb *redis.Client, idleEviction time.Duration) *RedisStore {
	if idleEviction <= 0 {
		idleEviction = 60 * time.Second
	}
	return &RedisStore{
		rdb:    rdb,
		idle:   idleEviction,
		script: observeScript,
	}
}

func (s *RedisStore) key(userID string) string {
	return "signalguard:window:" + userID
}

// Record appends a timestamp to the user's window. Sorted sets keep entries
// ordered by score regardless of insertion order.
func (s *RedisStore) Record(ctx context.Context, userID string, ts time.Time) error {
	key := s.key(userID)

	seq, err := s.rdb.Incr(ctx, key+":seq").Result()
	if err != nil {
		return fmt.Errorf("redis record: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(ts.UnixMicro()),
		Member: strconv.FormatInt(ts.UnixMicro(), 10) + ":" + strconv.FormatInt(seq, 10),
	})
	pipe.PExpire(ctx, key, s.idle)
	pipe.PExpire(ctx, key+":seq", s.idle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record: %w", err)
	}
	return nil
}

// Prune removes all entries strictly older than cutoff.
func (s *RedisStore) Prune(ctx context.Context, userID string, cutoff time.Time) error {
	max := "(" + strconv.FormatInt(cutoff.UnixMicro(), 10)
	if err := s.rdb.ZRemRangeByScore(ctx, s.key(userID), "-inf", max).Err(); err != nil {
		return fmt.Errorf("redis prune: %w", err)
	}
	return nil
}

// Count returns the number of entries currently in the user's window.
func (s *RedisStore) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.rdb.ZCard(ctx, s.key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis count: %w", err)
	}
	return int(n), nil
}

// EarliestTimestamp returns the smallest remaining timestamp for the user.
func (s *RedisStore) EarliestTimestamp(ctx context.Context, userID string) (time.Time, bool, error) {
	zs, err := s.rdb.ZRangeWithScores(ctx, s.key(userID), 0, 0).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis earliest: %w", err)
	}
	if len(zs) == 0 {
		return time.Time{}, false, nil
	}
	return time.UnixMicro(int64(zs[0].Score)), true, nil
}

// Observe runs the atomic record-prune-count-earliest script for one user.
func (s *RedisStore) Observe(ctx context.Context, userID string, ts, cutoff time.Time) (Observation, error) {
	res, err := s.script.Run(ctx, s.rdb, []string{s.key(userID)},
		ts.UnixMicro(),
		cutoff.UnixMicro(),
		s.idle.Milliseconds(),
	).Result()
	if err != nil {
		return Observation{}, fmt.Errorf("redis observe: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return Observation{}, fmt.Errorf("redis observe: unexpected reply %v", res)
	}

	count, ok := vals[0].(int64)
	if !ok {
		return Observation{}, fmt.Errorf("redis observe: unexpected count %v", vals[0])
	}

	obs := Observation{Count: int(count)}
	if earliest, ok := vals[1].(string); ok && count > 0 {
		micros, err := strconv.ParseFloat(earliest, 64)
		if err != nil {
			return Observation{}, fmt.Errorf("redis observe: bad earliest score %q: %w", earliest, err)
		}
		obs.Earliest = time.UnixMicro(int64(micros))
	}
	return obs, nil
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
