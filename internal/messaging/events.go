// Package messaging defines the wire format for order domain events: the
// generic envelope, the flat event payloads, and the event type tags used for
// consumer dispatch. Payloads are snapshots of aggregate state with no
// back-references, so the wire format stays cycle-free and decoupled from the
// aggregate's internal shape.
package messaging

import (
	"time"

	"orderflow/internal/core/domain/model/order"

	"github.com/shopspring/decimal"
)

// Event type tags carried in the envelope's EventType field.
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
)

// OrderItemPayload is the wire representation of a single order line item.
type OrderItemPayload struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// OrderCreatedEvent is the snapshot published when an order is created.
type OrderCreatedEvent struct {
	OrderID         string             `json:"orderId"`
	CustomerID      string             `json:"customerId"`
	Status          string             `json:"status"`
	CreatedAt       time.Time          `json:"createdAt"`
	TotalAmount     decimal.Decimal    `json:"totalAmount"`
	ShippingAddress string             `json:"shippingAddress"`
	Items           []OrderItemPayload `json:"items"`
}

// NewOrderCreatedEvent builds the creation snapshot from an order aggregate.
func NewOrderCreatedEvent(o *order.Order) OrderCreatedEvent {
	items := make([]OrderItemPayload, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, OrderItemPayload{
			ProductID:   item.ProductID(),
			ProductName: item.ProductName(),
			Quantity:    item.Quantity(),
			Price:       item.Price(),
		})
	}

	return OrderCreatedEvent{
		OrderID:         o.ID().String(),
		CustomerID:      o.CustomerID(),
		Status:          o.Status().String(),
		CreatedAt:       o.CreatedAt(),
		TotalAmount:     o.TotalAmount(),
		ShippingAddress: o.ShippingAddress(),
		Items:           items,
	}
}

// OrderStatusChangedEvent is published on every lifecycle transition,
// carrying both sides of the change.
type OrderStatusChangedEvent struct {
	OrderID   string    `json:"orderId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderStatusChangedEvent builds the transition snapshot for an order.
func NewOrderStatusChangedEvent(o *order.Order, oldStatus, newStatus order.Status) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:   o.ID().String(),
		OldStatus: oldStatus.String(),
		NewStatus: newStatus.String(),
		Timestamp: time.Now().UTC(),
	}
}

// LogEvent is the wire shape shipped to the centralized logging exchange.
type LogEvent struct {
	ID            string         `json:"id"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Level         string         `json:"level,omitempty"`
	Message       string         `json:"message"`
	Service       string         `json:"service"`
	Data          map[string]any `json:"data,omitempty"`
}
