package notification

import (
	"fmt"

	aulogging "github.com/StephanHCB/go-autumn-logging"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/context"
)

type redisDispatcher struct {
	rdb           redis.UniversalClient
	channelPrefix string
}

// NewRedisDispatcher publishes every push on the channel '<channelPrefix>|<username>',
// where the push gateway of the web clients is subscribed.
func NewRedisDispatcher(
	rdb redis.UniversalClient,
	channelPrefix string,
) Dispatcher {
	return &redisDispatcher{
		rdb:           rdb,
		channelPrefix: channelPrefix,
	}
}

func (d *redisDispatcher) SendPush(
	ctx context.Context,
	username string,
	message Message,
) error {
	payload, err := message.Encode()
	if err != nil {
		return err
	}
	receivers, err := d.rdb.Publish(ctx, d.Channel(username), payload).Result()
	if err != nil {
		return err
	}
	aulogging.Logger.Ctx(ctx).Debug().Printf("published %s push %s for '%s' to %d receivers", message.Action, message.ID, username, receivers)
	return nil
}

func (d *redisDispatcher) Channel(username string) string {
	return fmt.Sprintf("%s|%s", d.channelPrefix, username)
}
