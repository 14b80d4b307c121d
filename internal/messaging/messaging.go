package messaging

import (
	"context"
	"time"
)

// Topics the storefront publishes to.
const (
	TopicOrdersPlaced = "orders.placed"
	TopicCart         = "storefront.cart"
	TopicOrders       = "storefront.orders"
)

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error)
}

// ActionApplied is published for every state change of a store.
type ActionApplied struct {
	Seq        uint64    `json:"seq"`
	Stream     string    `json:"stream"`
	ActionType string    `json:"action_type"`
	Action     any       `json:"action"`
	AppliedAt  time.Time `json:"applied_at"`
}
