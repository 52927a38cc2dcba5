package locker

import (
	"sync"
	"time"

	"github.com/bsm/redislock"
	"golang.org/x/net/context"
)

type memoryLocker struct {
	locks   sync.Map
	options Options
}

type memoryLock struct {
	key            string
	retentionTimer *time.Timer
	locker         *memoryLocker
}

func NewMemoryLocker(
	options *Options,
) Locker {
	vOptions := CreateDefaultOptions()
	if options != nil {
		vOptions = *options
	}
	return &memoryLocker{options: vOptions}
}

func (l *memoryLocker) ObtainLock(
	ctx context.Context,
	key string,
) (Lock, error) {
	retry := retryStrategy(l.options)
	var ticker *time.Ticker
	for {
		lock := &memoryLock{key: key, locker: l}
		if _, locked := l.locks.LoadOrStore(key, lock); !locked {
			lock.startRetention()
			return lock, nil
		}

		backoff := retry.NextBackoff()
		if backoff < 1 {
			return nil, nil
		}

		if ticker == nil {
			ticker = time.NewTicker(backoff)
			defer ticker.Stop()
		} else {
			ticker.Reset(backoff)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *memoryLock) startRetention() {
	if l.locker.options.LockRetention > 0 {
		l.retentionTimer = time.AfterFunc(l.locker.options.LockRetention, l.expire)
	}
}

func (l *memoryLock) Release(
	_ context.Context,
) error {
	if l.retentionTimer != nil {
		l.retentionTimer.Stop()
	}
	l.expire()
	return nil
}

// expire only removes the entry if it still belongs to this lock.
func (l *memoryLock) expire() {
	l.locker.locks.CompareAndDelete(l.key, l)
}

func retryStrategy(options Options) redislock.RetryStrategy {
	if options.RetryInterval <= 0 {
		return redislock.NoRetry()
	}
	strategy := redislock.LinearBackoff(options.RetryInterval)
	if options.RetryLimit > 0 {
		return redislock.LimitRetry(strategy, options.RetryLimit)
	}
	return strategy
}
