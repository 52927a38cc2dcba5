package locker

import (
	"errors"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/context"
)

type redisLocker struct {
	locker  *redislock.Client
	options Options
}

type redisLock struct {
	lock *redislock.Lock
}

func NewRedisLockerFromClient(
	rdb redis.UniversalClient,
	options *Options,
) Locker {
	vOptions := CreateDefaultOptions()
	if options != nil {
		vOptions = *options
	}
	return &redisLocker{
		locker:  redislock.New(rdb),
		options: vOptions,
	}
}

func (l *redisLocker) ObtainLock(
	ctx context.Context,
	key string,
) (Lock, error) {
	lock, err := l.locker.Obtain(ctx, key, l.options.LockRetention, &redislock.Options{
		RetryStrategy: retryStrategy(l.options),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, nil
		}
		return nil, err
	}

	return &redisLock{
		lock: lock,
	}, nil
}

func (l *redisLock) Release(
	ctx context.Context,
) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}
