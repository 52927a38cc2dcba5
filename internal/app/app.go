package app

import (
	"errors"
	"time"

	"github.com/Roshick/go-autumn-assetlock/internal/config"
	"github.com/Roshick/go-autumn-assetlock/internal/metrics"
	"github.com/Roshick/go-autumn-assetlock/pkg/cache"
	"github.com/Roshick/go-autumn-assetlock/pkg/cameralock"
	"github.com/Roshick/go-autumn-assetlock/pkg/locker"
	"github.com/Roshick/go-autumn-assetlock/pkg/notification"
	"github.com/Roshick/go-autumn-assetlock/pkg/periodictask"
	"github.com/Roshick/go-autumn-assetlock/pkg/userdirectory"
	aulogging "github.com/StephanHCB/go-autumn-logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/redis/rueidis"
	"golang.org/x/net/context"
)

const (
	holdersCacheKey      = "camera-holder"
	waitingListsCacheKey = "camera-waiting-list"
	usersCacheKey        = "user-directory"
	timestampsCacheKey   = "periodic-task-last-run"
)

// App holds the wired components. Close releases every connection it opened.
type App struct {
	Config      *config.Config
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Cameras     *cameralock.Factory
	Users       *userdirectory.Directory
	Coordinator periodictask.Coordinator

	closers []func() error
}

type backend struct {
	holders      cache.Cache[cameralock.LockRecord]
	waitingLists cache.Cache[cameralock.WaitingList]
	users        cache.Cache[userdirectory.User]
	timestamps   cache.Cache[time.Time]
	locker       locker.Locker
	dispatcher   notification.Dispatcher
}

func New(
	ctx context.Context,
	cfg *config.Config,
) (*App, error) {
	a := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
	}
	a.Metrics = metrics.New(a.Registry)

	b, err := a.openBackend(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	repository, db, err := userdirectory.NewSQLRepository(ctx, cfg.Users.Driver, cfg.Users.DSN)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	a.Users = userdirectory.NewDirectory(repository, b.users, b.locker, cfg.Users.CacheRetention)
	a.Cameras = cameralock.NewFactory(cameralock.Dependencies{
		Holders:              b.holders,
		WaitingLists:         b.waitingLists,
		Locker:               b.locker,
		Dispatcher:           b.dispatcher,
		Profiles:             a.Users,
		Metrics:              a.Metrics,
		LockRetention:        cfg.Lock.Retention,
		WaitingListRetention: cfg.Lock.WaitingListRetention,
	})
	a.Coordinator = periodictask.NewCacheCoordinator(b.locker, b.timestamps)
	return a, nil
}

func (a *App) Close() error {
	errs := make([]error, 0)
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openBackend(
	ctx context.Context,
	cfg *config.Config,
) (*backend, error) {
	lockerOptions := &locker.Options{
		LockRetention: cfg.Locker.Retention,
		RetryInterval: cfg.Locker.RetryInterval,
		RetryLimit:    cfg.Locker.RetryLimit,
	}

	switch cfg.Redis.Backend {
	case config.BackendMemory:
		aulogging.Logger.Ctx(ctx).Warn().Printf("using in-memory backend, locks are not shared between processes")
		return &backend{
			holders:      cache.NewMemoryCache[cameralock.LockRecord](),
			waitingLists: cache.NewMemoryCache[cameralock.WaitingList](),
			users:        cache.NewMemoryCache[userdirectory.User](),
			timestamps:   cache.NewMemoryCache[time.Time](),
			locker:       locker.NewMemoryLocker(lockerOptions),
			dispatcher:   notification.NewLoggingDispatcher(),
		}, nil

	case config.BackendRueidis:
		clientOption := rueidis.ClientOption{
			InitAddress:       []string{cfg.Redis.Address},
			Password:          cfg.Redis.Password,
			SelectDB:          cfg.Redis.DB,
			DisableCache:      !cfg.Redis.ClientCache,
			ForceSingleClient: true,
		}
		client, err := rueidis.NewClient(clientOption)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			client.Close()
			return nil
		})
		l, err := locker.NewRueidisLocker(clientOption, lockerOptions)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, l.Close)
		var dispatcher notification.Dispatcher = notification.NewLoggingDispatcher()
		if cfg.Push.Enabled {
			dispatcher = notification.NewRueidisDispatcher(client, cfg.Push.ChannelPrefix)
		}
		aulogging.Logger.Ctx(ctx).Info().Printf("using rueidis backend at %s", cfg.Redis.Address)
		return &backend{
			holders:      cache.NewRueidisCacheFromClient[cameralock.LockRecord](client, holdersCacheKey),
			waitingLists: cache.NewRueidisCacheFromClient[cameralock.WaitingList](client, waitingListsCacheKey),
			users:        cache.NewRueidisCacheFromClient[userdirectory.User](client, usersCacheKey),
			timestamps:   cache.NewRueidisCacheFromClient[time.Time](client, timestampsCacheKey),
			locker:       l,
			dispatcher:   dispatcher,
		}, nil

	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		var dispatcher notification.Dispatcher = notification.NewLoggingDispatcher()
		if cfg.Push.Enabled {
			dispatcher = notification.NewRedisDispatcher(rdb, cfg.Push.ChannelPrefix)
		}
		aulogging.Logger.Ctx(ctx).Info().Printf("using go-redis backend at %s", cfg.Redis.Address)
		return &backend{
			holders:      cache.NewRedisCacheFromClient[cameralock.LockRecord](rdb, holdersCacheKey),
			waitingLists: cache.NewRedisCacheFromClient[cameralock.WaitingList](rdb, waitingListsCacheKey),
			users:        cache.NewRedisCacheFromClient[userdirectory.User](rdb, usersCacheKey),
			timestamps:   cache.NewRedisCacheFromClient[time.Time](rdb, timestampsCacheKey),
			locker:       locker.NewRedisLockerFromClient(rdb, lockerOptions),
			dispatcher:   dispatcher,
		}, nil
	}
}
