package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"orderflow/internal/messaging"
)

// OrderEventHandler dispatches order event deliveries on the envelope's
// eventType tag. Unknown types and malformed bodies are errors, so they end
// up in the dead-letter queue instead of being silently dropped.
type OrderEventHandler struct {
	logger *slog.Logger
}

// NewOrderEventHandler creates the dispatcher for the order event queue.
func NewOrderEventHandler(logger *slog.Logger) *OrderEventHandler {
	return &OrderEventHandler{
		logger: logger.With("component", "order_event_handler"),
	}
}

// Handle implements MessageHandler.
func (h *OrderEventHandler) Handle(ctx context.Context, body []byte) error {
	var envelope messaging.Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch envelope.EventType {
	case messaging.EventTypeOrderCreated:
		return h.handleOrderCreated(ctx, envelope)
	case messaging.EventTypeOrderStatusChanged:
		return h.handleOrderStatusChanged(ctx, envelope)
	default:
		return fmt.Errorf("unknown event type: %s", envelope.EventType)
	}
}

func (h *OrderEventHandler) handleOrderCreated(
	ctx context.Context, envelope messaging.Envelope[json.RawMessage],
) error {
	var event messaging.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created payload: %w", err)
	}

	h.logger.InfoContext(ctx, "Received order created event",
		"orderId", event.OrderID,
		"customerId", event.CustomerID,
		"totalAmount", event.TotalAmount.String(),
		"correlationId", envelope.CorrelationID)

	// Downstream effects (notifications, inventory, payment) would hang off
	// this point; for now receipt is recorded and the delivery acked.
	h.logger.InfoContext(ctx, "Processed order created event", "orderId", event.OrderID)
	return nil
}

func (h *OrderEventHandler) handleOrderStatusChanged(
	ctx context.Context, envelope messaging.Envelope[json.RawMessage],
) error {
	var event messaging.OrderStatusChangedEvent
	if err := json.Unmarshal(envelope.Payload, &event); err != nil {
		return fmt.Errorf("unmarshal order status changed payload: %w", err)
	}

	h.logger.InfoContext(ctx, "Received order status changed event",
		"orderId", event.OrderID,
		"oldStatus", event.OldStatus,
		"newStatus", event.NewStatus,
		"correlationId", envelope.CorrelationID)

	h.logger.InfoContext(ctx, "Processed order status changed event", "orderId", event.OrderID)
	return nil
}
