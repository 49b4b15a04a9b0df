// README: Redis pub/sub relay so every API instance delivers every pickup event to its local hub.
package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"kurs/internal/types"
)

const channelPrefix = "kurs:pickup:"

type RedisBus struct {
	redis *redis.Client
	hub   *Hub
	log   zerolog.Logger
}

func NewRedisBus(client *redis.Client, hub *Hub, log zerolog.Logger) *RedisBus {
	return &RedisBus{redis: client, hub: hub, log: log}
}

// Publish sends e to Redis only; local delivery happens through Run.
func (b *RedisBus) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, channelName(e.EntityID), payload).Err()
}

// Run relays messages from Redis into the local hub until ctx is done.
func (b *RedisBus) Run(ctx context.Context) {
	sub := b.redis.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
				continue
			}
			if e.EntityID == "" {
				e.EntityID = types.ID(strings.TrimPrefix(msg.Channel, channelPrefix))
			}
			b.hub.deliver(e)
		}
	}
}

func channelName(id types.ID) string {
	return channelPrefix + string(id)
}
