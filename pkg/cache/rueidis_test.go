package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func setupRueidisCache[E any](t *testing.T, key string) (*miniredis.Miniredis, Cache[E]) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:       []string{mr.Addr()},
		DisableCache:      true,
		ForceSingleClient: true,
	})
	require.Nil(t, err)
	t.Cleanup(client.Close)

	return mr, NewRueidisCacheFromClient[E](client, key)
}

func TestRueidisCacheRoundTrip(t *testing.T) {
	ctx := context.TODO()
	mr, cut := setupRueidisCache[assetRecord](t, "camera-holder")

	e1 := assetRecord{AssetID: "camera-1", Holder: p(int64(7))}
	require.Nil(t, cut.Set(ctx, "camera-1", e1, 5*time.Minute))
	require.True(t, mr.Exists("camera-holder|camera-1"))

	got, err := cut.Get(ctx, "camera-1")
	require.Nil(t, err)
	require.EqualValues(t, e1, *got)

	entries, err := cut.Entries(ctx)
	require.Nil(t, err)
	require.Equal(t, map[string]assetRecord{"camera-1": e1}, entries)

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

func TestRueidisCacheSubSecondRetention(t *testing.T) {
	ctx := context.TODO()
	mr, cut := setupRueidisCache[assetRecord](t, "camera-waiting-list")

	require.Nil(t, cut.Set(ctx, "camera-1", assetRecord{AssetID: "camera-1"}, 500*time.Millisecond))
	require.Equal(t, 500*time.Millisecond, mr.TTL("camera-waiting-list|camera-1"))

	retention, err := cut.RemainingRetention(ctx, "camera-1")
	require.Nil(t, err)
	require.Equal(t, 500*time.Millisecond, retention)

	mr.FastForward(500 * time.Millisecond)
	got, err := cut.Get(ctx, "camera-1")
	require.Nil(t, err)
	require.Nil(t, got)
}

func TestRueidisCacheSetIfAbsentOrEqual(t *testing.T) {
	ctx := context.TODO()
	mr, cut := setupRueidisCache[assetRecord](t, "camera-holder")

	holderA := assetRecord{AssetID: "camera-1", Holder: p(int64(1))}
	holderB := assetRecord{AssetID: "camera-1", Holder: p(int64(2))}

	written, err := cut.SetIfAbsentOrEqual(ctx, "camera-1", holderA, 5*time.Minute)
	require.Nil(t, err)
	require.True(t, written)
	require.Equal(t, 5*time.Minute, mr.TTL("camera-holder|camera-1"))

	written, err = cut.SetIfAbsentOrEqual(ctx, "camera-1", holderB, 5*time.Minute)
	require.Nil(t, err)
	require.False(t, written)

	mr.FastForward(4 * time.Minute)
	written, err = cut.SetIfAbsentOrEqual(ctx, "camera-1", holderA, 5*time.Minute)
	require.Nil(t, err)
	require.True(t, written)
	require.Equal(t, 5*time.Minute, mr.TTL("camera-holder|camera-1"))

	removed, err := cut.RemoveIfEqual(ctx, "camera-1", holderB)
	require.Nil(t, err)
	require.False(t, removed)

	removed, err = cut.RemoveIfEqual(ctx, "camera-1", holderA)
	require.Nil(t, err)
	require.True(t, removed)
	require.False(t, mr.Exists("camera-holder|camera-1"))
}

func TestRueidisCacheFlushOnlyTouchesOwnKeys(t *testing.T) {
	ctx := context.TODO()
	mr, cut := setupRueidisCache[assetRecord](t, "camera-holder")
	require.Nil(t, mr.Set("camera-waiting-list|camera-1", "[]"))

	require.Nil(t, cut.Set(ctx, "camera-1", assetRecord{AssetID: "camera-1"}, 0))
	require.Nil(t, cut.Set(ctx, "camera-2", assetRecord{AssetID: "camera-2"}, 0))

	keys, err := cut.Keys(ctx)
	require.Nil(t, err)
	require.ElementsMatch(t, []string{"camera-1", "camera-2"}, keys)

	require.Nil(t, cut.Flush(ctx))

	keys, err = cut.Keys(ctx)
	require.Nil(t, err)
	require.Empty(t, keys)
	require.True(t, mr.Exists("camera-waiting-list|camera-1"))

	require.Nil(t, cut.Flush(ctx))
}
