package ports

import (
	"context"

	"orderflow/internal/core/domain/model/order"
)

// EventPublisher is the outbound port for announcing order lifecycle changes.
// Implementations own the wire format, routing, and delivery retry; callers
// only decide what happened. Publication is a separate step from persistence:
// a failed publish after a successful save is the caller's to log, not to
// roll back.
type EventPublisher interface {
	// PublishOrderCreated emits a creation snapshot of the order.
	PublishOrderCreated(ctx context.Context, aggregate *order.Order) error

	// PublishOrderStatusChanged emits a transition event carrying both the
	// old and the new status.
	PublishOrderStatusChanged(ctx context.Context, aggregate *order.Order, oldStatus, newStatus order.Status) error
}
