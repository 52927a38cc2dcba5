package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	aulogging "github.com/StephanHCB/go-autumn-logging"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memoryCache[Entity any] struct {
	store sync.Map
	// serialises writes so that SetIfAbsentOrEqual cannot interleave with Set or Remove
	mu  sync.Mutex
	now func() time.Time
}

func NewMemoryCache[Entity any]() Cache[Entity] {
	return &memoryCache[Entity]{store: sync.Map{}, now: time.Now}
}

func (c *memoryCache[Entity]) Entries(
	ctx context.Context,
) (map[string]Entity, error) {
	aulogging.Logger.Ctx(ctx).Debug().Printf("fetching all entries from cache")
	entries := make(map[string]Entity)
	var firstError error
	c.rangeLive(func(key string, entry memoryEntry) bool {
		vPtr, err := unmarshal[Entity](entry.value)
		if err != nil {
			firstError = err
			return false
		}
		entries[key] = *vPtr
		return true
	})
	return entries, firstError
}

func (c *memoryCache[Entity]) Keys(
	ctx context.Context,
) ([]string, error) {
	aulogging.Logger.Ctx(ctx).Debug().Printf("fetching all keys from cache")
	keys := make([]string, 0)
	c.rangeLive(func(key string, _ memoryEntry) bool {
		keys = append(keys, key)
		return true
	})
	return keys, nil
}

func (c *memoryCache[Entity]) Values(
	ctx context.Context,
) ([]Entity, error) {
	aulogging.Logger.Ctx(ctx).Debug().Printf("fetching all values from cache")
	values := make([]Entity, 0)
	var firstError error
	c.rangeLive(func(_ string, entry memoryEntry) bool {
		vPtr, err := unmarshal[Entity](entry.value)
		if err != nil {
			firstError = err
			return false
		}
		values = append(values, *vPtr)
		return true
	})
	return values, firstError
}

func (c *memoryCache[Entity]) Set(
	ctx context.Context,
	key string,
	value Entity,
	retention time.Duration,
) error {
	aulogging.Logger.Ctx(ctx).Debug().Printf("setting value of '%s' in cache", key)
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Store(key, c.newEntry(string(jsonBytes), retention))
	return nil
}

func (c *memoryCache[Entity]) SetIfAbsentOrEqual(
	ctx context.Context,
	key string,
	value Entity,
	retention time.Duration,
) (bool, error) {
	aulogging.Logger.Ctx(ctx).Debug().Printf("conditionally setting value of '%s' in cache", key)
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.load(key); ok && current.value != string(jsonBytes) {
		return false, nil
	}
	c.store.Store(key, c.newEntry(string(jsonBytes), retention))
	return true, nil
}

func (c *memoryCache[Entity]) Get(
	ctx context.Context,
	key string,
) (*Entity, error) {
	aulogging.Logger.Ctx(ctx).Debug().Printf("fetching value of '%s' from cache", key)
	entry, ok := c.load(key)
	if !ok {
		return nil, nil
	}
	return unmarshal[Entity](entry.value)
}

func (c *memoryCache[Entity]) Remove(
	ctx context.Context,
	key string,
) error {
	aulogging.Logger.Ctx(ctx).Debug().Printf("removing value of '%s' from cache", key)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Delete(key)
	return nil
}

func (c *memoryCache[Entity]) RemoveIfEqual(
	ctx context.Context,
	key string,
	value Entity,
) (bool, error) {
	aulogging.Logger.Ctx(ctx).Debug().Printf("conditionally removing value of '%s' from cache", key)
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.load(key)
	if !ok || current.value != string(jsonBytes) {
		return false, nil
	}
	c.store.Delete(key)
	return true, nil
}

func (c *memoryCache[Entity]) RemainingRetention(
	_ context.Context,
	key string,
) (time.Duration, error) {
	entry, ok := c.load(key)
	if !ok {
		return 0, nil
	}
	if entry.expiresAt.IsZero() {
		return NoExpiry, nil
	}
	return entry.expiresAt.Sub(c.now()), nil
}

func (c *memoryCache[Entity]) Flush(
	ctx context.Context,
) error {
	aulogging.Logger.Ctx(ctx).Debug().Printf("flushing cache")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Range(func(key, _ any) bool {
		c.store.Delete(key)
		return true
	})
	return nil
}

func (c *memoryCache[Entity]) newEntry(
	value string,
	retention time.Duration,
) memoryEntry {
	entry := memoryEntry{value: value}
	if retention > 0 {
		entry.expiresAt = c.now().Add(time.Duration(retentionMillis(retention)) * time.Millisecond)
	}
	return entry
}

func (c *memoryCache[Entity]) load(key string) (memoryEntry, bool) {
	value, ok := c.store.Load(key)
	if !ok {
		return memoryEntry{}, false
	}
	entry := value.(memoryEntry)
	if c.expired(entry) {
		c.store.CompareAndDelete(key, value)
		return memoryEntry{}, false
	}
	return entry, true
}

func (c *memoryCache[Entity]) rangeLive(f func(key string, entry memoryEntry) bool) {
	c.store.Range(func(key, value any) bool {
		entry := value.(memoryEntry)
		if c.expired(entry) {
			return true
		}
		return f(key.(string), entry)
	})
}

func (c *memoryCache[Entity]) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt)
}

func unmarshal[Entity any](jsonString string) (*Entity, error) {
	var value Entity
	if err := json.Unmarshal([]byte(jsonString), &value); err != nil {
		return nil, err
	}
	return &value, nil
}
