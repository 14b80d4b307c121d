// Package watermill adapts Watermill publishers and subscribers, backed by
// Kafka through Sarama, to the messaging interfaces.
package watermill

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/google/uuid"
)

// partitionKey is the metadata entry used as the Kafka message key.
const partitionKey = "partition_key"

// Publisher publishes JSON events through a Watermill publisher.
type Publisher struct {
	pub message.Publisher
}

var _ messaging.Publisher = (*Publisher)(nil)

// NewPublisher wraps any Watermill publisher.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// NewKafkaPublisher creates a Publisher producing to Kafka.
func NewKafkaPublisher(brokers []string, logger *slog.Logger) (*Publisher, error) {
	saramaCfg := kafka.DefaultSaramaSyncPublisherConfig()
	saramaCfg.ClientID = "storefront"
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             kafka.NewWithPartitioningMarshaler(messageKey),
		OverwriteSaramaConfig: saramaCfg,
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return NewPublisher(pub), nil
}

// NewInProcess returns a publisher and subscriber sharing one in-memory
// Go channel pub/sub, for running without a broker.
func NewInProcess(logger *slog.Logger) (*Publisher, *Subscriber) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
	return NewPublisher(pubSub), NewSubscriber(func(string) (message.Subscriber, error) { return pubSub, nil })
}

func messageKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(partitionKey), nil
}

func (p *Publisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(partitionKey, key)
	msg.SetContext(ctx)

	if err := p.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}

// SubscriberFactory builds a Watermill subscriber for a consumer group.
type SubscriberFactory func(groupID string) (message.Subscriber, error)

// Subscriber consumes topics through Watermill subscribers.
type Subscriber struct {
	newSubscriber SubscriberFactory
}

var _ messaging.Subscriber = (*Subscriber)(nil)

// NewSubscriber creates a Subscriber from a factory.
func NewSubscriber(factory SubscriberFactory) *Subscriber {
	return &Subscriber{newSubscriber: factory}
}

// NewKafkaSubscriber creates a Subscriber consuming from Kafka.
func NewKafkaSubscriber(brokers []string, logger *slog.Logger) *Subscriber {
	wmLogger := watermill.NewSlogLogger(logger)
	return NewSubscriber(func(groupID string) (message.Subscriber, error) {
		return kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
			ConsumerGroup:         groupID,
		}, wmLogger)
	})
}

// Consume blocks until ctx is done. Handler errors are logged and the message
// is acknowledged anyway.
func (s *Subscriber) Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error) {
	sub, err := s.newSubscriber(groupID)
	if err != nil {
		slog.Error("Failed to create subscriber", "topic", topic, "group", groupID, "err", err)
		return
	}
	defer sub.Close()

	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		slog.Error("Failed to subscribe", "topic", topic, "err", err)
		return
	}

	for msg := range messages {
		if err := handler(ctx, msg.Payload); err != nil {
			slog.Error("Error handling message", "topic", topic, "message_uuid", msg.UUID, "err", err)
		}
		msg.Ack()
	}
	slog.Info("Consumer shutting down", "topic", topic)
}
