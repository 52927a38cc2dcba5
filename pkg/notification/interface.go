package notification

import (
	"golang.org/x/net/context"
)

//go:generate mockgen -source=interface.go -destination=mock_dispatcher.go -package=notification

// Dispatcher delivers push messages to a single user, identified by username.
type Dispatcher interface {
	SendPush(
		ctx context.Context,
		username string,
		message Message,
	) error
}
