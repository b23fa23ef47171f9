package ports

import (
	"context"

	"github.com/drip-labs/dripd/internal/core/domain"
)

// EventBus fans domain events out to subscribers. Publishing must not block
// commit processing on slow consumers.
type EventBus interface {
	Publish(ctx context.Context, events ...domain.Event) error
	Subscribe(ctx context.Context, topic string) (<-chan domain.Event, error)
	Close() error
}
