// Package eventbus provides the watermill publisher/subscriber pair used to
// broadcast scoring notifications: NATS when configured, otherwise an
// in-process channel pub/sub.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"

	"github.com/Black-And-White-Club/flagboard/internal/attr"
)

// EventBus is what modules publish to and subscribe from.
type EventBus interface {
	Publish(topic string, messages ...*message.Message) error
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// Config selects and configures the transport.
type Config struct {
	URL              string
	NkeySeed         string
	QueueGroupPrefix string
	SubscribersCount int
}

// Bus is a watermill EventBus.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

var _ EventBus = (*Bus)(nil)

// New builds a NATS bus when cfg.URL is set and an in-process bus otherwise.
func New(cfg Config, logger *slog.Logger) (*Bus, error) {
	if cfg.URL == "" {
		logger.Info("NATS URL not configured, using in-process event bus")
		return NewInProcess(logger), nil
	}
	return NewNATS(cfg, logger)
}

// NewInProcess returns a bus backed by watermill's gochannel pub/sub.
func NewInProcess(logger *slog.Logger) *Bus {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewSlogLogger(logger))
	return &Bus{publisher: pubSub, subscriber: pubSub, logger: logger}
}

// NewNATS connects a core NATS publisher and subscriber.
func NewNATS(cfg Config, logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.ErrorHandler(func(_ *nc.Conn, s *nc.Subscription, err error) {
			if s != nil {
				logger.Error("Error in NATS subscription", attr.String("subject", s.Subject), attr.Error(err))
				return
			}
			logger.Error("Error in NATS connection", attr.Error(err))
		}),
	}
	if cfg.NkeySeed != "" {
		opt, err := nkeyOption(cfg.NkeySeed)
		if err != nil {
			return nil, err
		}
		options = append(options, opt)
	}

	publisher, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: options,
		Marshaler:   &nats.NATSMarshaler{},
		JetStream:   nats.JetStreamConfig{Disabled: true},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	subscribers := cfg.SubscribersCount
	if subscribers <= 0 {
		subscribers = 1
	}
	subscriber, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroupPrefix,
		SubscribersCount: subscribers,
		CloseTimeout:     30 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      options,
		Unmarshaler:      &nats.NATSMarshaler{},
		JetStream:        nats.JetStreamConfig{Disabled: true},
	}, wmLogger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create NATS subscriber: %w", err)
	}

	logger.Info("Connected event bus to NATS", attr.String("url", cfg.URL))
	return &Bus{publisher: publisher, subscriber: subscriber, logger: logger}, nil
}

// nkeyOption authenticates the connection by signing the server nonce with
// the user seed.
func nkeyOption(seed string) (nc.Option, error) {
	kp, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return nil, fmt.Errorf("invalid nkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive nkey public key: %w", err)
	}
	return nc.Nkey(pub, kp.Sign), nil
}

func (b *Bus) Publish(topic string, messages ...*message.Message) error {
	return b.publisher.Publish(topic, messages...)
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

// Close closes the subscriber and then the publisher. For the in-process bus
// both are the same value and the second close is a no-op.
func (b *Bus) Close() error {
	var errs []error
	if err := b.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close subscriber: %w", err))
	}
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close publisher: %w", err))
	}
	return errors.Join(errs...)
}

// NewMessage encodes payload as JSON and carries the context's correlation id.
func NewMessage(ctx context.Context, payload any) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	if id := attr.CorrelationID(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	}
	msg.SetContext(ctx)
	return msg, nil
}

// PublishJSON publishes payload on topic.
func PublishJSON(ctx context.Context, bus EventBus, topic string, payload any) error {
	msg, err := NewMessage(ctx, payload)
	if err != nil {
		return err
	}
	if err := bus.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// DecodeJSON decodes a message body into a T.
func DecodeJSON[T any](msg *message.Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("failed to decode message %s: %w", msg.UUID, err)
	}
	return v, nil
}

// MessageContext returns msg's context enriched with its correlation id.
func MessageContext(msg *message.Message) context.Context {
	ctx := msg.Context()
	if id := middleware.MessageCorrelationID(msg); id != "" {
		ctx = attr.WithCorrelationID(ctx, id)
	}
	return ctx
}
