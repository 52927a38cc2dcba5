package cameralock

import (
	"fmt"

	"github.com/Roshick/go-autumn-assetlock/pkg/locker"
	"golang.org/x/net/context"
)

func (m *Manager) WaitingList(
	ctx context.Context,
) ([]int64, error) {
	list, err := m.deps.WaitingLists.Get(ctx, m.assetID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return []int64{}, nil
	}
	return list.UserIDs, nil
}

// AddToWaitingList appends the acting user once and returns the length of the list.
func (m *Manager) AddToWaitingList(
	ctx context.Context,
) (int, error) {
	var length int
	callback := func() error {
		waiting, err := m.WaitingList(ctx)
		if err != nil {
			return err
		}
		length = len(waiting)
		if contains(waiting, m.user.ID) {
			return nil
		}
		waiting = append(waiting, m.user.ID)
		length = len(waiting)
		return m.storeWaitingList(ctx, waiting)
	}

	err := locker.Synchronised(ctx, m.deps.Locker, m.waitingListLockerKey(), callback)
	return length, err
}

func (m *Manager) RemoveFromWaitingList(
	ctx context.Context,
) error {
	callback := func() error {
		waiting, err := m.WaitingList(ctx)
		if err != nil {
			return err
		}
		if !contains(waiting, m.user.ID) {
			return nil
		}
		remaining := make([]int64, 0, len(waiting))
		for _, id := range waiting {
			if id != m.user.ID {
				remaining = append(remaining, id)
			}
		}
		return m.storeWaitingList(ctx, remaining)
	}

	return locker.Synchronised(ctx, m.deps.Locker, m.waitingListLockerKey(), callback)
}

func (m *Manager) ClearWaitingList(
	ctx context.Context,
) error {
	return m.deps.WaitingLists.Remove(ctx, m.assetID)
}

func (m *Manager) storeWaitingList(
	ctx context.Context,
	userIDs []int64,
) error {
	if len(userIDs) == 0 {
		return m.deps.WaitingLists.Remove(ctx, m.assetID)
	}
	return m.deps.WaitingLists.Set(ctx, m.assetID, WaitingList{
		AssetID: m.assetID,
		UserIDs: userIDs,
	}, m.deps.WaitingListRetention)
}

func (m *Manager) waitingListLockerKey() string {
	return fmt.Sprintf("camera-waiting-list-%s-locker", m.assetID)
}

func contains(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
