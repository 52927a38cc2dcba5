package locker

import (
	aulogging "github.com/StephanHCB/go-autumn-logging"
	"golang.org/x/net/context"
)

// Synchronised runs callback while holding the lock named key. A nil locker runs the
// callback unguarded.
func Synchronised(
	ctx context.Context,
	l Locker,
	key string,
	callback func() error,
) error {
	if l == nil {
		return callback()
	}

	lock, err := l.ObtainLock(ctx, key)
	if err != nil {
		return err
	}
	if lock == nil {
		return NewErrLockNotObtained(key)
	}
	defer func(lock Lock, ctx context.Context) {
		err := lock.Release(ctx)
		if err != nil {
			aulogging.Logger.Ctx(ctx).Warn().WithErr(err).Printf("failed to unlock %s", key)
		}
	}(lock, ctx)
	return callback()
}
