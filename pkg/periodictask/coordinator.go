package periodictask

import (
	"time"

	"github.com/Roshick/go-autumn-assetlock/pkg/cache"
	"github.com/Roshick/go-autumn-assetlock/pkg/locker"
	"golang.org/x/net/context"
)

type cacheCoordinator struct {
	locker.Locker
	timestamps cache.Cache[time.Time]
}

// NewCacheCoordinator keeps last-run timestamps in the shared cache so that all replicas
// agree on when a task ran last.
func NewCacheCoordinator(
	l locker.Locker,
	timestamps cache.Cache[time.Time],
) Coordinator {
	return &cacheCoordinator{
		Locker:     l,
		timestamps: timestamps,
	}
}

func (c *cacheCoordinator) LastRunTimestamp(
	ctx context.Context,
	key string,
) (*time.Time, error) {
	return c.timestamps.Get(ctx, key)
}

func (c *cacheCoordinator) UpdateLastRunTimestamp(
	ctx context.Context,
	key string,
) error {
	return c.timestamps.Set(ctx, key, time.Now().UTC(), 0)
}
