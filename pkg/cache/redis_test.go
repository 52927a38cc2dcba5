package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func setupRedisCache[E any](t *testing.T, key string) (*miniredis.Miniredis, Cache[E]) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return mr, NewRedisCacheFromClient[E](rdb, key)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.TODO()
	mr, cut := setupRedisCache[assetRecord](t, "camera-holder")

	e1 := assetRecord{AssetID: "camera-1", Holder: p(int64(7))}
	err := cut.Set(ctx, "camera-1", e1, 5*time.Minute)
	require.Nil(t, err)
	require.True(t, mr.Exists("camera-holder|camera-1"))

	got, err := cut.Get(ctx, "camera-1")
	require.Nil(t, err)
	require.EqualValues(t, e1, *got)

	keys, err := cut.Keys(ctx)
	require.Nil(t, err)
	require.Equal(t, []string{"camera-1"}, keys)

	retention, err := cut.RemainingRetention(ctx, "camera-1")
	require.Nil(t, err)
	require.Equal(t, 5*time.Minute, retention)

	mr.FastForward(5 * time.Minute)

	got, err = cut.Get(ctx, "camera-1")
	require.Nil(t, err)
	require.Nil(t, got)

	retention, err = cut.RemainingRetention(ctx, "camera-1")
	require.Nil(t, err)
	require.Zero(t, retention)

	require.Nil(t, cut.Set(ctx, "camera-2", e1, 0))
	retention, err = cut.RemainingRetention(ctx, "camera-2")
	require.Nil(t, err)
	require.Equal(t, NoExpiry, retention)
}

func TestRedisCacheSubSecondRetention(t *testing.T) {
	ctx := context.TODO()
	mr, cut := setupRedisCache[assetRecord](t, "camera-waiting-list")

	require.Nil(t, cut.Set(ctx, "camera-1", assetRecord{AssetID: "camera-1"}, 500*time.Millisecond))
	require.Equal(t, 500*time.Millisecond, mr.TTL("camera-waiting-list|camera-1"))

	written, err := cut.SetIfAbsentOrEqual(ctx, "camera-2", assetRecord{AssetID: "camera-2"}, 250*time.Microsecond)
	require.Nil(t, err)
	require.True(t, written)
	require.Equal(t, time.Millisecond, mr.TTL("camera-waiting-list|camera-2"))
}

func TestRedisCacheRemoveIfEqual(t *testing.T) {
	ctx := context.TODO()
	mr, cut := setupRedisCache[assetRecord](t, "camera-holder")

	holderA := assetRecord{AssetID: "camera-1", Holder: p(int64(1))}
	holderB := assetRecord{AssetID: "camera-1", Holder: p(int64(2))}
	require.Nil(t, cut.Set(ctx, "camera-1", holderB, time.Minute))

	removed, err := cut.RemoveIfEqual(ctx, "camera-1", holderA)
	require.Nil(t, err)
	require.False(t, removed)
	require.True(t, mr.Exists("camera-holder|camera-1"))

	removed, err = cut.RemoveIfEqual(ctx, "camera-1", holderB)
	require.Nil(t, err)
	require.True(t, removed)
	require.False(t, mr.Exists("camera-holder|camera-1"))
}

func TestRedisCacheSetIfAbsentOrEqual(t *testing.T) {
	ctx := context.TODO()
	mr, cut := setupRedisCache[assetRecord](t, "camera-holder")

	holderA := assetRecord{AssetID: "camera-1", Holder: p(int64(1))}
	holderB := assetRecord{AssetID: "camera-1", Holder: p(int64(2))}

	written, err := cut.SetIfAbsentOrEqual(ctx, "camera-1", holderA, 5*time.Minute)
	require.Nil(t, err)
	require.True(t, written)

	written, err = cut.SetIfAbsentOrEqual(ctx, "camera-1", holderB, 5*time.Minute)
	require.Nil(t, err)
	require.False(t, written)

	got, err := cut.Get(ctx, "camera-1")
	require.Nil(t, err)
	require.EqualValues(t, holderA, *got)

	mr.FastForward(4 * time.Minute)
	written, err = cut.SetIfAbsentOrEqual(ctx, "camera-1", holderA, 5*time.Minute)
	require.Nil(t, err)
	require.True(t, written)
	require.Equal(t, 5*time.Minute, mr.TTL("camera-holder|camera-1"))

	mr.FastForward(5 * time.Minute)
	written, err = cut.SetIfAbsentOrEqual(ctx, "camera-1", holderB, 0)
	require.Nil(t, err)
	require.True(t, written)
	require.Zero(t, mr.TTL("camera-holder|camera-1"))
}

func TestRedisCacheSetIfAbsentOrEqualSingleWinner(t *testing.T) {
	ctx := context.TODO()
	_, cut := setupRedisCache[assetRecord](t, "camera-holder")

	const contenders = 16
	var winners int32
	var wg sync.WaitGroup
	wg.Add(contenders)
	for i := 0; i < contenders; i++ {
		go func(holder int64) {
			defer wg.Done()
			written, err := cut.SetIfAbsentOrEqual(ctx, "camera-1", assetRecord{AssetID: "camera-1", Holder: &holder}, time.Minute)
			if err == nil && written {
				atomic.AddInt32(&winners, 1)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	require.EqualValues(t, 1, winners)
}

func TestRedisCacheFlushOnlyTouchesOwnKeys(t *testing.T) {
	ctx := context.TODO()
	mr, cut := setupRedisCache[assetRecord](t, "camera-holder")
	require.Nil(t, mr.Set("camera-waiting-list|camera-1", "[]"))

	require.Nil(t, cut.Set(ctx, "camera-1", assetRecord{AssetID: "camera-1"}, 0))
	require.Nil(t, cut.Set(ctx, "camera-2", assetRecord{AssetID: "camera-2"}, 0))

	require.Nil(t, cut.Flush(ctx))

	keys, err := cut.Keys(ctx)
	require.Nil(t, err)
	require.Empty(t, keys)
	require.True(t, mr.Exists("camera-waiting-list|camera-1"))

	require.Nil(t, cut.Flush(ctx))
}
