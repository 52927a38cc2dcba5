package cameralock

import (
	"fmt"
	"time"

	"github.com/Roshick/go-autumn-assetlock/internal/metrics"
	"github.com/Roshick/go-autumn-assetlock/pkg/cache"
	"github.com/Roshick/go-autumn-assetlock/pkg/locker"
	"github.com/Roshick/go-autumn-assetlock/pkg/notification"
	"github.com/Roshick/go-autumn-assetlock/pkg/userdirectory"
	aulogging "github.com/StephanHCB/go-autumn-logging"
	"golang.org/x/net/context"
)

type Dependencies struct {
	Holders      cache.Cache[LockRecord]
	WaitingLists cache.Cache[WaitingList]
	// Locker serialises waiting-list updates per asset.
	Locker     locker.Locker
	Dispatcher notification.Dispatcher
	Profiles   ProfileResolver
	// Metrics may be nil.
	Metrics *metrics.Metrics

	LockRetention        time.Duration
	WaitingListRetention time.Duration
}

type Factory struct {
	deps Dependencies
}

func NewFactory(
	deps Dependencies,
) *Factory {
	if deps.LockRetention <= 0 {
		deps.LockRetention = DefaultLockRetention
	}
	return &Factory{deps: deps}
}

// For returns the manager acting on behalf of user for the given asset. Managers are
// cheap, all state lives in the shared cache.
func (f *Factory) For(
	assetID string,
	user userdirectory.User,
) *Manager {
	return &Manager{
		assetID: assetID,
		user:    user,
		deps:    f.deps,
	}
}

// Manager grants one user at a time exclusive, time-bounded access to a camera.
type Manager struct {
	assetID string
	user    userdirectory.User
	deps    Dependencies
}

func (m *Manager) AssetID() string {
	return m.assetID
}

func (m *Manager) HasAccess(
	ctx context.Context,
) (bool, error) {
	record, err := m.deps.Holders.Get(ctx, m.assetID)
	if err != nil {
		return false, err
	}
	return record == nil || record.HolderID == m.user.ID, nil
}

// LockCamera locks the camera for the acting user, or refreshes the lock if the user
// already holds it. It returns false without any change if another user holds it.
func (m *Manager) LockCamera(
	ctx context.Context,
) (bool, error) {
	record := LockRecord{
		AssetID:  m.assetID,
		HolderID: m.user.ID,
	}
	locked, err := m.deps.Holders.SetIfAbsentOrEqual(ctx, m.assetID, record, m.deps.LockRetention)
	if err != nil {
		return false, err
	}
	if !locked {
		m.deps.Metrics.ObserveOperation("lock", "denied")
		aulogging.Logger.Ctx(ctx).Info().Printf("camera '%s' is locked by another user, denied lock for user %d", m.assetID, m.user.ID)
		return false, nil
	}
	m.deps.Metrics.ObserveOperation("lock", "granted")
	aulogging.Logger.Ctx(ctx).Info().Printf("camera '%s' locked by user %d for %s", m.assetID, m.user.ID, m.deps.LockRetention)

	if err = m.RemoveFromWaitingList(ctx); err != nil {
		aulogging.Logger.Ctx(ctx).Warn().WithErr(err).
			Printf("failed to remove user %d from waiting list of camera '%s' after locking", m.user.ID, m.assetID)
	}
	return true, nil
}

// UnlockCamera frees the camera regardless of who holds it and notifies the waiting list.
// Callers are expected to have checked HasAccess or an equivalent permission upstream.
func (m *Manager) UnlockCamera(
	ctx context.Context,
) error {
	if err := m.deps.Holders.Remove(ctx, m.assetID); err != nil {
		return err
	}
	m.deps.Metrics.ObserveOperation("unlock", "released")
	aulogging.Logger.Ctx(ctx).Info().Printf("camera '%s' unlocked by user %d", m.assetID, m.user.ID)

	return m.NotifyWaitingListOnAssetAvailable(ctx)
}

// RequestAccess returns true if the camera is free or already held by the acting user.
// Otherwise the user joins the waiting list, the holder is asked to release the camera
// and false is returned.
func (m *Manager) RequestAccess(
	ctx context.Context,
) (bool, error) {
	holder, err := m.CurrentUser(ctx)
	if err != nil {
		return false, err
	}
	if holder == nil || holder.ID == m.user.ID {
		m.deps.Metrics.ObserveOperation("request", "available")
		return true, nil
	}

	if _, err = m.AddToWaitingList(ctx); err != nil {
		return false, err
	}
	m.deps.Metrics.ObserveOperation("request", "queued")

	message := notification.NewMessage(
		notification.ActionCameraAccessRequest,
		m.assetID,
		fmt.Sprintf("%s is requesting access to the camera", m.user.DisplayName()),
	)
	message.Username = m.user.Username
	m.dispatch(ctx, holder.Username, message)
	return false, nil
}

// CurrentUser returns the minimal profile of the holder, or nil if the camera is free.
// A lock held by a user that no longer exists is cleared, unless it was replaced in
// the meantime.
func (m *Manager) CurrentUser(
	ctx context.Context,
) (*userdirectory.Profile, error) {
	record, err := m.deps.Holders.Get(ctx, m.assetID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	profile, err := m.deps.Profiles.Profile(ctx, record.HolderID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		aulogging.Logger.Ctx(ctx).Warn().Printf("camera '%s' is held by unknown user %d, clearing lock", m.assetID, record.HolderID)
		removed, err := m.deps.Holders.RemoveIfEqual(ctx, m.assetID, *record)
		if err != nil {
			return nil, err
		}
		if !removed {
			// the stale lock expired and someone else locked the camera in the meantime
			return m.CurrentUser(ctx)
		}
		return nil, nil
	}
	return profile, nil
}

// NotifyWaitingListOnAssetAvailable pushes an availability message to everyone on the
// waiting list. Push failures are logged only.
func (m *Manager) NotifyWaitingListOnAssetAvailable(
	ctx context.Context,
) error {
	waiting, err := m.WaitingList(ctx)
	if err != nil {
		return err
	}

	for _, userID := range waiting {
		profile, err := m.deps.Profiles.Profile(ctx, userID)
		if err != nil {
			aulogging.Logger.Ctx(ctx).Warn().WithErr(err).
				Printf("failed to resolve waiting user %d of camera '%s'", userID, m.assetID)
			continue
		}
		if profile == nil {
			continue
		}
		m.dispatch(ctx, profile.Username, notification.NewMessage(
			notification.ActionCameraAvailability,
			m.assetID,
			"camera is now available",
		))
	}
	return nil
}

func (m *Manager) dispatch(
	ctx context.Context,
	username string,
	message notification.Message,
) {
	err := m.deps.Dispatcher.SendPush(ctx, username, message)
	m.deps.Metrics.ObservePush(string(message.Action), err)
	if err != nil {
		aulogging.Logger.Ctx(ctx).Warn().WithErr(err).
			Printf("failed to push %s for camera '%s' to '%s'", message.Action, m.assetID, username)
	}
}
