// Package eventbus carries outbound notifications from the core to the
// chat-platform gateway over NATS, using watermill as the messaging layer.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

// Topics the platform gateway subscribes to.
const (
	TopicThreadPost   = "scrimpilot.thread.post"
	TopicTicketCard   = "scrimpilot.arbitration.card"
	TopicTicketUpdate = "scrimpilot.arbitration.card_update"
)

// EventBus publishes JSON payloads to named topics.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

type bus struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewNATS connects to NATS and returns a publisher-backed bus.
func NewNATS(url string, logger *slog.Logger) (EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
	}

	publisher, err := wmnats.NewPublisher(
		wmnats.PublisherConfig{
			URL:         url,
			NatsOptions: options,
			Marshaler:   &wmnats.NATSMarshaler{},
			JetStream: wmnats.JetStreamConfig{
				Disabled: true,
			},
		},
		wmLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	return &bus{publisher: publisher, logger: logger}, nil
}

// NewInProcess returns a gochannel-backed bus for tests, along with the
// subscriber side so tests can observe published messages.
func NewInProcess(logger *slog.Logger) (EventBus, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	return &bus{publisher: pubSub, logger: logger}, pubSub
}

func (b *bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	if err := b.publisher.Publish(topic, msg); err != nil {
		b.logger.ErrorContext(ctx, "Failed to publish event",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (b *bus) Close() error {
	return b.publisher.Close()
}
