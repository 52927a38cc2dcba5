package userdirectory

import (
	"errors"
	"strconv"
	"time"

	"github.com/Roshick/go-autumn-assetlock/pkg/cache"
	"github.com/Roshick/go-autumn-assetlock/pkg/locker"
	aulogging "github.com/StephanHCB/go-autumn-logging"
	"golang.org/x/net/context"
)

const lockerKey = "user-directory-locker"

// Directory reads users through a cache in front of the repository. Writes and
// reconciliations are serialised through the locker.
type Directory struct {
	repository Repository
	cache      cache.Cache[User]
	locker     locker.Locker
	retention  time.Duration
}

func NewDirectory(
	repository Repository,
	cache cache.Cache[User],
	locker locker.Locker,
	retention time.Duration,
) *Directory {
	return &Directory{
		repository: repository,
		cache:      cache,
		locker:     locker,
		retention:  retention,
	}
}

func (d *Directory) ReconcileAll(
	ctx context.Context,
) error {
	callback := func() error {
		users, err := d.repository.ReadAll(ctx)
		if err != nil {
			return err
		}
		cachedUsers, err := d.cache.Entries(ctx)
		if err != nil {
			return err
		}
		errs := make([]error, 0)
		for key := range cachedUsers {
			id, parseErr := strconv.ParseInt(key, 10, 64)
			if parseErr != nil {
				errs = append(errs, d.cache.Remove(ctx, key))
				continue
			}
			if _, ok := users[id]; !ok {
				errs = append(errs, d.performCacheAction(ctx, id, nil))
			}
		}
		for id := range users {
			user := users[id]
			errs = append(errs, d.performCacheAction(ctx, id, &user))
		}
		return errors.Join(errs...)
	}

	return locker.Synchronised(ctx, d.locker, lockerKey, callback)
}

func (d *Directory) Reconcile(
	ctx context.Context,
	id int64,
) error {
	callback := func() error {
		user, err := d.repository.Read(ctx, id)
		if err != nil {
			if errors.As(err, &ErrUserNotFound{}) {
				return d.performCacheAction(ctx, id, nil)
			}
			return err
		}
		return d.performCacheAction(ctx, id, &user)
	}

	return locker.Synchronised(ctx, d.locker, lockerKey, callback)
}

func (d *Directory) Create(
	ctx context.Context,
	user User,
) error {
	callback := func() error {
		if err := d.repository.Create(ctx, user); err != nil {
			return err
		}
		return d.performCacheAction(ctx, user.ID, &user)
	}

	return locker.Synchronised(ctx, d.locker, lockerKey, callback)
}

func (d *Directory) Read(
	ctx context.Context,
	id int64,
) (User, error) {
	cachedUser, err := d.cache.Get(ctx, cacheKey(id))
	if err != nil || cachedUser == nil {
		if err != nil {
			aulogging.Logger.Ctx(ctx).Warn().WithErr(err).Printf("failed to read user %d from cache, falling back to repository", id)
		}
		if err = d.Reconcile(ctx, id); err != nil {
			return User{}, err
		}
		cachedUser, err = d.cache.Get(ctx, cacheKey(id))
		if err != nil {
			return User{}, err
		}
		if cachedUser == nil {
			return User{}, NewErrUserNotFound(id)
		}
	}
	return *cachedUser, nil
}

// Profile returns the minimal profile of the user, or nil if the user does not exist.
func (d *Directory) Profile(
	ctx context.Context,
	id int64,
) (*Profile, error) {
	user, err := d.Read(ctx, id)
	if err != nil {
		if errors.As(err, &ErrUserNotFound{}) {
			return nil, nil
		}
		return nil, err
	}
	profile := Minimal(user)
	return &profile, nil
}

func (d *Directory) performCacheAction(
	ctx context.Context,
	id int64,
	user *User,
) error {
	key := cacheKey(id)
	if user == nil {
		if err := d.cache.Remove(ctx, key); err != nil {
			aulogging.Logger.Ctx(ctx).Warn().WithErr(err).
				Printf("failed to remove user %d from cache, cache will be out of date until reconciliation", id)
			return err
		}
		return nil
	}
	if err := d.cache.Set(ctx, key, *user, d.retention); err != nil {
		aulogging.Logger.Ctx(ctx).Warn().WithErr(err).
			Printf("failed to cache user %d", id)
		return err
	}
	aulogging.Logger.Ctx(ctx).Debug().Printf("successfully cached user %d", id)
	return nil
}

func cacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
