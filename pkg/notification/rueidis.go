package notification

import (
	"fmt"

	aulogging "github.com/StephanHCB/go-autumn-logging"
	"github.com/redis/rueidis"
	"golang.org/x/net/context"
)

type rueidisDispatcher struct {
	client        rueidis.Client
	channelPrefix string
}

func NewRueidisDispatcher(
	client rueidis.Client,
	channelPrefix string,
) Dispatcher {
	return &rueidisDispatcher{
		client:        client,
		channelPrefix: channelPrefix,
	}
}

func (d *rueidisDispatcher) SendPush(
	ctx context.Context,
	username string,
	message Message,
) error {
	payload, err := message.Encode()
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("%s|%s", d.channelPrefix, username)
	receivers, err := d.client.Do(ctx, d.client.B().Publish().Channel(channel).Message(payload).Build()).AsInt64()
	if err != nil {
		return err
	}
	aulogging.Logger.Ctx(ctx).Debug().Printf("published %s push %s for '%s' to %d receivers", message.Action, message.ID, username, receivers)
	return nil
}
