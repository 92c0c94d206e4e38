package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/messaging"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publishChannel is the slice of *amqp.Channel the publisher needs.
type publishChannel interface {
	PublishWithContext(
		ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing,
	) error
}

// Publisher sends enveloped messages to the broker. Every publish is
// mandatory and persistent; transient connectivity failures are retried with
// exponential backoff (1s initial, doubling, 10s cap), everything else fails
// immediately.
type Publisher struct {
	ch         publishChannel
	cfg        Config
	source     string
	logger     *slog.Logger
	maxElapsed time.Duration
}

// NewPublisher creates a publisher bound to one channel and topology config.
// The source name is stamped on every envelope.
func NewPublisher(ch publishChannel, cfg Config, source string, logger *slog.Logger) *Publisher {
	return &Publisher{
		ch:         ch,
		cfg:        cfg,
		source:     source,
		logger:     logger.With("component", "rabbitmq_publisher"),
		maxElapsed: 30 * time.Second,
	}
}

// Source returns the service name stamped on outgoing envelopes.
func (p *Publisher) Source() string {
	return p.source
}

// Publish marshals the envelope and sends it to the given exchange under the
// given routing key. The envelope's message id, correlation id, and timestamp
// are mirrored onto the AMQP properties so brokers and tooling see them
// without parsing the body.
func Publish[T any](
	ctx context.Context, p *Publisher, exchange, key string, envelope messaging.Envelope[T],
) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     envelope.MessageID,
		CorrelationId: envelope.CorrelationID,
		Timestamp:     envelope.Timestamp,
		Type:          envelope.EventType,
		Body:          body,
	}

	return p.withRetry(ctx, func() error {
		return p.ch.PublishWithContext(ctx, exchange, key, true, false, msg)
	})
}

// SendOrderCommand publishes to the command exchange under the order command key.
func SendOrderCommand[T any](ctx context.Context, p *Publisher, envelope messaging.Envelope[T]) error {
	return Publish(ctx, p, p.cfg.CommandExchange, p.cfg.CommandRoutingKey, envelope)
}

// SendOrderEvent publishes to the event exchange under the order event key.
func SendOrderEvent[T any](ctx context.Context, p *Publisher, envelope messaging.Envelope[T]) error {
	return Publish(ctx, p, p.cfg.EventExchange, p.cfg.EventRoutingKey, envelope)
}

// BroadcastOrderMessage publishes to the fanout exchange; the routing key is
// empty because fanout ignores it.
func BroadcastOrderMessage[T any](ctx context.Context, p *Publisher, envelope messaging.Envelope[T]) error {
	return Publish(ctx, p, p.cfg.BroadcastExchange, "", envelope)
}

// PublishOrderCreated implements ports.EventPublisher.
func (p *Publisher) PublishOrderCreated(ctx context.Context, aggregate *order.Order) error {
	event := messaging.NewOrderCreatedEvent(aggregate)
	envelope := messaging.NewEnvelope(event, messaging.EventTypeOrderCreated, p.source)
	return SendOrderEvent(ctx, p, envelope)
}

// PublishOrderStatusChanged implements ports.EventPublisher.
func (p *Publisher) PublishOrderStatusChanged(
	ctx context.Context, aggregate *order.Order, oldStatus, newStatus order.Status,
) error {
	event := messaging.NewOrderStatusChangedEvent(aggregate, oldStatus, newStatus)
	envelope := messaging.NewEnvelope(event, messaging.EventTypeOrderStatusChanged, p.source)
	return SendOrderEvent(ctx, p, envelope)
}

func (p *Publisher) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 1 * time.Second
	policy.Multiplier = 2.0
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = p.maxElapsed

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}

		p.logger.Warn("Publish failed, retrying", "error", err)
		return err
	}, backoff.WithContext(policy, ctx))
}

// isTransient reports whether a publish failure is worth retrying on the same
// channel. Closed channels/connections and broker-side connection errors are
// transient; malformed routing, access refusals, and marshalling problems are
// not.
func isTransient(err error) bool {
	if errors.Is(err, amqp.ErrClosed) {
		return true
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		switch amqpErr.Code {
		case amqp.ConnectionForced, amqp.FrameError, amqp.ChannelError, amqp.ResourceError, amqp.InternalError:
			return true
		}
	}

	return false
}
