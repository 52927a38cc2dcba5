package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	aulogging "github.com/StephanHCB/go-autumn-logging"
	"github.com/redis/go-redis/v9"
)

// KEYS[1] entry key, ARGV[1] encoded value, ARGV[2] retention in milliseconds (0 = none)
const setIfAbsentOrEqualScript = `
local current = redis.call('GET', KEYS[1])
if current and current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`

// KEYS[1] entry key, ARGV[1] encoded value
const removeIfEqualScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`

var (
	setIfAbsentOrEqual = redis.NewScript(setIfAbsentOrEqualScript)
	removeIfEqual      = redis.NewScript(removeIfEqualScript)
)

type redisCache[Entity any] struct {
	rdb redis.UniversalClient
	key string
}

func NewRedisCacheFromClient[Entity any](
	rdb redis.UniversalClient,
	key string,
) Cache[Entity] {
	return &redisCache[Entity]{
		rdb: rdb,
		key: key,
	}
}

func (c *redisCache[Entity]) Entries(
	ctx context.Context,
) (map[string]Entity, error) {
	aulogging.Logger.Ctx(ctx).Debug().Printf("fetching all entries from cache '%s'", c.key)
	keys, err := c.Keys(ctx)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]Entity)
	for _, key := range keys {
		value, err := c.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if value != nil {
			entries[key] = *value
		}
	}
	return entries, nil
}

func (c *redisCache[Entity]) Keys(
	ctx context.Context,
) ([]string, error) {
	keysWithPrefix, err := c.rdb.Keys(ctx, c.entryKeyPattern()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	keys := make([]string, 0)
	for _, keyWithPrefix := range keysWithPrefix {
		keys = append(keys, strings.TrimPrefix(keyWithPrefix, c.entryKeyPrefix()))
	}
	return keys, nil
}

func (c *redisCache[Entity]) Values(
	ctx context.Context,
) ([]Entity, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]Entity, 0)
	for _, value := range entries {
		values = append(values, value)
	}
	return values, nil
}

func (c *redisCache[Entity]) Set(
	ctx context.Context,
	key string,
	value Entity,
	retention time.Duration,
) error {
	aulogging.Logger.Ctx(ctx).Debug().Printf("setting value of '%s' in cache '%s'", key, c.key)
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, c.entryKey(key), string(jsonBytes), time.Duration(retentionMillis(retention))*time.Millisecond).Err()
}

func (c *redisCache[Entity]) SetIfAbsentOrEqual(
	ctx context.Context,
	key string,
	value Entity,
	retention time.Duration,
) (bool, error) {
	aulogging.Logger.Ctx(ctx).Debug().Printf("conditionally setting value of '%s' in cache '%s'", key, c.key)
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	written, err := setIfAbsentOrEqual.Run(ctx, c.rdb,
		[]string{c.entryKey(key)},
		string(jsonBytes), retentionMillis(retention),
	).Int()
	if err != nil {
		return false, err
	}
	return written == 1, nil
}

func (c *redisCache[Entity]) Get(
	ctx context.Context,
	key string,
) (*Entity, error) {
	jsonString, err := c.rdb.Get(ctx, c.entryKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var value Entity
	if err = json.Unmarshal([]byte(jsonString), &value); err != nil {
		return nil, err
	}
	return &value, nil
}

func (c *redisCache[Entity]) Remove(
	ctx context.Context,
	key string,
) error {
	aulogging.Logger.Ctx(ctx).Debug().Printf("removing value of '%s' from cache '%s'", key, c.key)
	return c.rdb.Del(ctx, c.entryKey(key)).Err()
}

func (c *redisCache[Entity]) RemoveIfEqual(
	ctx context.Context,
	key string,
	value Entity,
) (bool, error) {
	aulogging.Logger.Ctx(ctx).Debug().Printf("conditionally removing value of '%s' from cache '%s'", key, c.key)
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	removed, err := removeIfEqual.Run(ctx, c.rdb, []string{c.entryKey(key)}, string(jsonBytes)).Int()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}

func (c *redisCache[Entity]) RemainingRetention(
	ctx context.Context,
	key string,
) (time.Duration, error) {
	ttl, err := c.rdb.PTTL(ctx, c.entryKey(key)).Result()
	if err != nil {
		return 0, err
	}
	// go-redis hands back the -2 (missing) and -1 (persistent) replies unscaled
	if ttl < 0 {
		return retentionFromPTTL(int64(ttl)), nil
	}
	return ttl, nil
}

func (c *redisCache[Entity]) Flush(
	ctx context.Context,
) error {
	aulogging.Logger.Ctx(ctx).Debug().Printf("flushing cache '%s'", c.key)
	keysWithPrefix, err := c.rdb.Keys(ctx, c.entryKeyPattern()).Result()
	if err != nil {
		return err
	}
	if len(keysWithPrefix) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keysWithPrefix...).Err()
}

// retentionMillis rounds a positive retention up to whole milliseconds, so that a
// sub-millisecond retention still expires instead of being stored forever.
func retentionMillis(retention time.Duration) int64 {
	if retention <= 0 {
		return 0
	}
	return int64((retention + time.Millisecond - 1) / time.Millisecond)
}

func retentionFromPTTL(millis int64) time.Duration {
	switch millis {
	case -2:
		return 0
	case -1:
		return NoExpiry
	}
	return time.Duration(millis) * time.Millisecond
}

func (c *redisCache[Entity]) entryKeyPrefix() string {
	return fmt.Sprintf("%s|", c.key)
}

func (c *redisCache[Entity]) entryKeyPattern() string {
	return fmt.Sprintf("%s*", c.entryKeyPrefix())
}

func (c *redisCache[Entity]) entryKey(key string) string {
	return fmt.Sprintf("%s%s", c.entryKeyPrefix(), key)
}
