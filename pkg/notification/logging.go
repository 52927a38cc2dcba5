package notification

import (
	aulogging "github.com/StephanHCB/go-autumn-logging"
	"golang.org/x/net/context"
)

type loggingDispatcher struct{}

// NewLoggingDispatcher only logs pushes. Used when no push channel is configured.
func NewLoggingDispatcher() Dispatcher {
	return &loggingDispatcher{}
}

func (d *loggingDispatcher) SendPush(
	ctx context.Context,
	username string,
	message Message,
) error {
	payload, err := message.Encode()
	if err != nil {
		return err
	}
	aulogging.Logger.Ctx(ctx).Info().Printf("push for '%s': %s", username, payload)
	return nil
}
