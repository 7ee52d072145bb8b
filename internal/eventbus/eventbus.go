// Package eventbus fans committed belief-graph events out to external
// subscribers over Redis pub/sub. Grounded on internal/storage.NewRedisClient
// (address from REDIS_ADDR/REDIS_PASSWORD, falling back to localhost), wired
// here to publish/subscribe on a per-network channel instead of existing
// only as an unused client constructor.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/ids"
)

// NewClient returns a Redis client configured from REDIS_ADDR/REDIS_PASSWORD
// (defaulting to localhost:6379), verified reachable with a Ping.
func NewClient(ctx context.Context) (*redis.Client, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("eventbus: ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// Bus publishes committed events to per-network Redis channels and lets
// subscribers read them back as a filtered stream.
type Bus struct {
	client *redis.Client
}

// New wraps an already-connected client.
func New(client *redis.Client) *Bus {
	return &Bus{client: client}
}

func channelName(network ids.BID) string {
	return fmt.Sprintf("noetgraph:events:%s", network.String())
}

// wireEvent is the JSON shape published to subscribers: the whole
// event.Event nested under "event", with its Kind and Origin repeated
// alongside as strings.
type wireEvent struct {
	Kind   string      `json:"kind"`
	Origin string      `json:"origin"`
	Event  event.Event `json:"event"`
}

// Publish fans out batch on network's channel, one message per event.
func (b *Bus) Publish(ctx context.Context, network ids.BID, batch []event.Event) error {
	channel := channelName(network)
	for _, ev := range batch {
		data, err := json.Marshal(wireEvent{Kind: ev.Kind.String(), Origin: ev.Origin.String(), Event: ev})
		if err != nil {
			return fmt.Errorf("eventbus: encode event: %w", err)
		}
		if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
			return fmt.Errorf("eventbus: publish to %s: %w", channel, err)
		}
	}
	return nil
}

// Filter narrows a subscription to events matching a predicate — e.g. only
// Durable-origin events, or only a specific Kind. A nil Filter passes
// everything through.
type Filter func(event.Event) bool

// Subscribe returns a channel of events published on network's channel
// matching filter, and a close function to stop the subscription.
func (b *Bus) Subscribe(ctx context.Context, network ids.BID, filter Filter) (<-chan event.Event, func() error) {
	sub := b.client.Subscribe(ctx, channelName(network))
	out := make(chan event.Event)

	go func() {
		defer close(out)
		ch := sub.Channel()
		for msg := range ch {
			var we wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &we); err != nil {
				continue
			}
			if filter != nil && !filter(we.Event) {
				continue
			}
			select {
			case out <- we.Event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, sub.Close
}
