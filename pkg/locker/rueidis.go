package locker

import (
	"errors"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidislock"
	"golang.org/x/net/context"
)

type rueidisLocker struct {
	locker  rueidislock.Locker
	options Options
}

type rueidisLock struct {
	cancel context.CancelFunc
}

// NewRueidisLocker opens a dedicated client for rueidislock from clientOption. Against
// servers without client side caching support set DisableCache.
func NewRueidisLocker(
	clientOption rueidis.ClientOption,
	options *Options,
) (ClosableLocker, error) {
	vOptions := CreateDefaultOptions()
	if options != nil {
		vOptions = *options
	}

	lockerOption := rueidislock.LockerOption{
		ClientOption: clientOption,
		KeyMajority:  2,
	}
	if vOptions.LockRetention > 0 {
		lockerOption.KeyValidity = vOptions.LockRetention
	}
	locker, err := rueidislock.NewLocker(lockerOption)
	if err != nil {
		return nil, err
	}

	return &rueidisLocker{
		locker:  locker,
		options: vOptions,
	}, nil
}

func (l *rueidisLocker) ObtainLock(
	ctx context.Context,
	key string,
) (Lock, error) {
	retry := retryStrategy(l.options)
	for {
		_, cancel, err := l.locker.TryWithContext(ctx, key)
		if err == nil {
			return &rueidisLock{cancel: cancel}, nil
		}
		if !errors.Is(err, rueidislock.ErrNotLocked) {
			return nil, err
		}

		backoff := retry.NextBackoff()
		if backoff < 1 {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (l *rueidisLock) Release(
	_ context.Context,
) error {
	l.cancel()
	return nil
}

func (l *rueidisLocker) Close() error {
	l.locker.Close()
	return nil
}
