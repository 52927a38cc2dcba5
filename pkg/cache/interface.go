package cache

import (
	"time"

	"golang.org/x/net/context"
)

// NoExpiry is reported by RemainingRetention for an entry stored with a retention of zero.
const NoExpiry time.Duration = -1

// Cache stores JSON encoded entities under string keys. A retention of zero means the
// entry never expires, positive retentions are kept with millisecond precision. Get
// returns nil, nil for a missing or expired entry.
type Cache[Entity any] interface {
	Entries(
		ctx context.Context,
	) (map[string]Entity, error)

	Keys(
		ctx context.Context,
	) ([]string, error)

	Values(
		ctx context.Context,
	) ([]Entity, error)

	Set(
		ctx context.Context,
		key string,
		value Entity,
		retention time.Duration,
	) error

	// SetIfAbsentOrEqual writes value only if the key is missing or already holds an
	// equal value, refreshing the retention in the latter case. The check and the write
	// happen atomically.
	SetIfAbsentOrEqual(
		ctx context.Context,
		key string,
		value Entity,
		retention time.Duration,
	) (bool, error)

	Get(
		ctx context.Context,
		key string,
	) (*Entity, error)

	Remove(
		ctx context.Context,
		key string,
	) error

	// RemoveIfEqual deletes the entry only if it still holds value. The check and the
	// delete happen atomically.
	RemoveIfEqual(
		ctx context.Context,
		key string,
		value Entity,
	) (bool, error)

	// RemainingRetention returns 0 for a missing entry and NoExpiry for an entry that
	// never expires.
	RemainingRetention(
		ctx context.Context,
		key string,
	) (time.Duration, error)

	Flush(
		ctx context.Context,
	) error
}
