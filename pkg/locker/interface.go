package locker

import (
	"time"

	"golang.org/x/net/context"
)

// Locker hands out exclusive named locks. ObtainLock returns nil, nil when the lock could
// not be obtained before the retry strategy gave up.
type Locker interface {
	ObtainLock(
		ctx context.Context,
		key string,
	) (Lock, error)
}

// ClosableLocker owns its connection, Close releases it together with every held lock.
type ClosableLocker interface {
	Locker
	Close() error
}

type Lock interface {
	Release(
		ctx context.Context,
	) error
}

type Options struct {
	// LockRetention bounds how long a lock survives a holder that never releases it.
	LockRetention time.Duration
	RetryInterval time.Duration
	// RetryLimit of zero retries until the context is done.
	RetryLimit int
}

func CreateDefaultOptions() Options {
	return Options{
		LockRetention: 30 * time.Second,
		RetryInterval: 100 * time.Millisecond,
		RetryLimit:    100,
	}
}
