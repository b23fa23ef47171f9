package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/drip-labs/dripd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type eventBus struct {
	pubSub *gochannel.GoChannel
}

// NewEventBus returns an in-process event bus backed by watermill's
// gochannel pub/sub. Publishing is buffered so slow subscribers cannot
// stall commit processing.
func NewEventBus() ports.EventBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 128},
		watermill.NopLogger{},
	)
	return &eventBus{pubSub}
}

func (b *eventBus) Publish(ctx context.Context, events ...domain.Event) error {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize event: %w", err)
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		if err := b.pubSub.Publish(event.Topic(), msg); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
	}
	return nil
}

func (b *eventBus) Subscribe(
	ctx context.Context, topic string,
) (<-chan domain.Event, error) {
	msgs, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	events := make(chan domain.Event)
	go func() {
		defer close(events)
		for msg := range msgs {
			event, err := decodeEvent(topic, msg.Payload)
			if err != nil {
				log.WithError(err).WithField("topic", topic).Warn("dropping malformed event")
				msg.Ack()
				continue
			}
			select {
			case events <- event:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return events, nil
}

func (b *eventBus) Close() error {
	return b.pubSub.Close()
}

func decodeEvent(topic string, payload []byte) (domain.Event, error) {
	switch topic {
	case domain.EventTopicWithdrawing:
		var event domain.Withdrawing
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	case domain.EventTopicWithdrawn:
		var event domain.Withdrawn
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	default:
		return nil, fmt.Errorf("unknown topic %s", topic)
	}
}
