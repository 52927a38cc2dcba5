package cameralock

import (
	"time"

	"github.com/Roshick/go-autumn-assetlock/pkg/userdirectory"
	"golang.org/x/net/context"
)

const DefaultLockRetention = 5 * time.Minute

// LockRecord is stored under the asset id while the camera is locked. Records of the
// same holder encode identically, which is what makes re-locking idempotent.
type LockRecord struct {
	AssetID  string `json:"asset_id"`
	HolderID int64  `json:"holder_user_id"`
}

type WaitingList struct {
	AssetID string  `json:"asset_id"`
	UserIDs []int64 `json:"user_ids"`
}

// ProfileResolver returns the minimal profile of a user, or nil, nil if the user is unknown.
type ProfileResolver interface {
	Profile(
		ctx context.Context,
		id int64,
	) (*userdirectory.Profile, error)
}
