package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/messaging"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPublish struct {
	exchange  string
	key       string
	mandatory bool
	msg       amqp.Publishing
}

// fakePublishChannel fails the first failures calls, then succeeds.
type fakePublishChannel struct {
	failures  int
	failWith  error
	published []recordedPublish
}

func (f *fakePublishChannel) PublishWithContext(
	_ context.Context, exchange, key string, mandatory, _ bool, msg amqp.Publishing,
) error {
	if f.failures > 0 {
		f.failures--
		return f.failWith
	}

	f.published = append(f.published, recordedPublish{
		exchange:  exchange,
		key:       key,
		mandatory: mandatory,
		msg:       msg,
	})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAggregate(t *testing.T) *order.Order {
	t.Helper()

	item, err := order.NewItem(kernel.NewUUID(), "prod-1", "Widget", 2, decimal.NewFromFloat(10.00))
	require.NoError(t, err)
	item2, err := order.NewItem(kernel.NewUUID(), "prod-2", "Gadget", 1, decimal.NewFromFloat(15.50))
	require.NoError(t, err)

	aggregate, err := order.NewOrder(
		kernel.NewUUID(), "customer-1", "221B Baker Street", []*order.Item{item, item2})
	require.NoError(t, err)
	return aggregate
}

func TestPublish_MandatoryPersistentWithEnvelopeProperties(t *testing.T) {
	ch := &fakePublishChannel{}
	p := NewPublisher(ch, DefaultConfig(), "order-service", discardLogger())

	envelope := messaging.NewEnvelope("ping", "order.created", "order-service")
	err := Publish(context.Background(), p, "order.events", "orders.event", envelope)
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "order.events", got.exchange)
	assert.Equal(t, "orders.event", got.key)
	assert.True(t, got.mandatory)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, envelope.MessageID, got.msg.MessageId)
	assert.Equal(t, envelope.CorrelationID, got.msg.CorrelationId)
	assert.Equal(t, "order.created", got.msg.Type)
	assert.Equal(t, "application/json", got.msg.ContentType)
}

func TestPublishOrderCreated_EnvelopeRoundTrip(t *testing.T) {
	ch := &fakePublishChannel{}
	cfg := DefaultConfig()
	p := NewPublisher(ch, cfg, "order-service", discardLogger())
	aggregate := testAggregate(t)

	err := p.PublishOrderCreated(context.Background(), aggregate)
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	assert.Equal(t, cfg.EventExchange, ch.published[0].exchange)
	assert.Equal(t, cfg.EventRoutingKey, ch.published[0].key)

	var envelope messaging.Envelope[messaging.OrderCreatedEvent]
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &envelope))

	assert.Equal(t, messaging.EventTypeOrderCreated, envelope.EventType)
	assert.Equal(t, "order-service", envelope.Source)
	assert.Equal(t, envelope.MessageID, envelope.CorrelationID)
	assert.Equal(t, aggregate.ID().String(), envelope.Payload.OrderID)
	assert.Equal(t, "CREATED", envelope.Payload.Status)
	assert.Equal(t, "35.50", envelope.Payload.TotalAmount.StringFixed(2))
	assert.Len(t, envelope.Payload.Items, 2)
}

func TestPublishOrderStatusChanged_CarriesBothStatuses(t *testing.T) {
	ch := &fakePublishChannel{}
	p := NewPublisher(ch, DefaultConfig(), "order-service", discardLogger())
	aggregate := testAggregate(t)
	require.NoError(t, aggregate.UpdateStatus(order.Paid))

	err := p.PublishOrderStatusChanged(context.Background(), aggregate, order.Created, order.Paid)
	require.NoError(t, err)

	var envelope messaging.Envelope[messaging.OrderStatusChangedEvent]
	require.Len(t, ch.published, 1)
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &envelope))

	assert.Equal(t, messaging.EventTypeOrderStatusChanged, envelope.EventType)
	assert.Equal(t, "CREATED", envelope.Payload.OldStatus)
	assert.Equal(t, "PAID", envelope.Payload.NewStatus)
}

func TestSendOrderCommand_RoutesToCommandExchange(t *testing.T) {
	ch := &fakePublishChannel{}
	cfg := DefaultConfig()
	p := NewPublisher(ch, cfg, "order-service", discardLogger())

	envelope := messaging.NewEnvelope("reserve", "order.command", "order-service")
	err := SendOrderCommand(context.Background(), p, envelope)
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	assert.Equal(t, cfg.CommandExchange, ch.published[0].exchange)
	assert.Equal(t, cfg.CommandRoutingKey, ch.published[0].key)
}

func TestBroadcastOrderMessage_FanoutIgnoresRoutingKey(t *testing.T) {
	ch := &fakePublishChannel{}
	cfg := DefaultConfig()
	p := NewPublisher(ch, cfg, "order-service", discardLogger())

	envelope := messaging.NewEnvelope("announce", "order.created", "order-service")
	err := BroadcastOrderMessage(context.Background(), p, envelope)
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	assert.Equal(t, cfg.BroadcastExchange, ch.published[0].exchange)
	assert.Empty(t, ch.published[0].key)
}

func TestPublish_TransientFailureIsRetried(t *testing.T) {
	ch := &fakePublishChannel{failures: 1, failWith: amqp.ErrClosed}
	p := NewPublisher(ch, DefaultConfig(), "order-service", discardLogger())

	envelope := messaging.NewEnvelope("ping", "order.created", "order-service")

	start := time.Now()
	err := SendOrderEvent(context.Background(), p, envelope)
	require.NoError(t, err)

	assert.Len(t, ch.published, 1)
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond,
		"retry should back off before the second attempt")
}

func TestPublish_PermanentFailureIsNotRetried(t *testing.T) {
	permanent := &amqp.Error{Code: amqp.AccessRefused, Reason: "access refused"}
	ch := &fakePublishChannel{failures: 10, failWith: permanent}
	p := NewPublisher(ch, DefaultConfig(), "order-service", discardLogger())

	envelope := messaging.NewEnvelope("ping", "order.created", "order-service")
	err := SendOrderEvent(context.Background(), p, envelope)

	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 9, ch.failures, "only one attempt should have been made")
	assert.Empty(t, ch.published)
}

func TestPublish_CancelledContextStopsRetrying(t *testing.T) {
	ch := &fakePublishChannel{failures: 100, failWith: amqp.ErrClosed}
	p := NewPublisher(ch, DefaultConfig(), "order-service", discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	envelope := messaging.NewEnvelope("ping", "order.created", "order-service")
	err := SendOrderEvent(ctx, p, envelope)

	require.Error(t, err)
	assert.Empty(t, ch.published)
}

func TestIsTransient_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"channel closed", amqp.ErrClosed, true},
		{"connection forced", &amqp.Error{Code: amqp.ConnectionForced}, true},
		{"internal broker error", &amqp.Error{Code: amqp.InternalError}, true},
		{"access refused", &amqp.Error{Code: amqp.AccessRefused}, false},
		{"not found", &amqp.Error{Code: amqp.NotFound}, false},
		{"arbitrary error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, isTransient(tt.err))
		})
	}
}
