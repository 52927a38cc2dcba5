package userdirectory

import (
	"golang.org/x/net/context"
)

// Repository is the persistent user store. Read returns ErrUserNotFound for unknown ids.
type Repository interface {
	Create(
		ctx context.Context,
		user User,
	) error

	ReadAll(
		ctx context.Context,
	) (map[int64]User, error)

	Read(
		ctx context.Context,
		id int64,
	) (User, error)
}
