package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const channelBuffer = 64

// Broker publishes and subscribes to change events over Redis pub/sub
type Broker struct {
	client *redis.Client
}

// NewBroker creates a broker on an existing Redis client
func NewBroker(client *redis.Client) *Broker {
	return &Broker{client: client}
}

// Publish sends a change event to every subscriber of its table
func (b *Broker) Publish(ctx context.Context, ev ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, channelName(ev.Table), data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscribe opens a subscription to changes of table whose type passes filter.
// The returned channel fails when the Redis connection drops.
func (b *Broker) Subscribe(ctx context.Context, table string, filter EventType) (*Channel, error) {
	ps := b.client.Subscribe(ctx, channelName(table))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", table, err)
	}

	ch := NewChannel(channelBuffer)
	ch.onClose = ps.Close

	go pump(ps, ch, table, filter)

	log.Debug().Str("table", table).Str("filter", string(filter)).Msg("Realtime subscription opened")
	return ch, nil
}

func pump(ps *redis.PubSub, ch *Channel, table string, filter EventType) {
	ctx := context.Background()
	for {
		msg, err := ps.ReceiveMessage(ctx)
		if err != nil {
			ch.Fail(fmt.Errorf("realtime subscription to %s lost: %w", table, err))
			return
		}

		var ev ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Warn().Err(err).Str("table", table).Msg("Dropping malformed change event")
			continue
		}
		if !filter.Matches(ev.Type) {
			continue
		}
		if !ch.Deliver(ev) {
			return
		}
	}
}
