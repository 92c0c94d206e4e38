package commands

import (
	"context"
	"log/slog"

	"orderflow/internal/core/ports"
)

// CancelOrderCommandHandler cancels an order that has not yet shipped.
// Cancellation is a status transition like any other, so the same
// status-changed event announces it.
type CancelOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	publisher  ports.EventPublisher
	logger     *slog.Logger
}

// NewCancelOrderCommandHandler creates a handler for order cancellation.
func NewCancelOrderCommandHandler(
	uowFactory OrderUoWFactory,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) CancelOrderCommandHandler {
	return CancelOrderCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     logger.With("component", "cancel_order_handler"),
	}
}

// Handle processes the cancellation command.
// Orders that are shipped, delivered, refunded or already cancelled cannot be
// cancelled; the aggregate returns a cancellation error and nothing changes.
func (h *CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	aggregate, err := uow.OrderRepository().Get(ctx, cmd.OrderID())
	if err != nil {
		return err
	}

	oldStatus := aggregate.Status()
	if err = aggregate.Cancel(); err != nil {
		return err
	}

	if err = uow.OrderRepository().Update(ctx, aggregate); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	if err = h.publisher.PublishOrderStatusChanged(ctx, aggregate, oldStatus, aggregate.Status()); err != nil {
		// The cancellation is already committed; the event is lost, not the write.
		h.logger.ErrorContext(ctx, "Failed to publish order status changed event",
			"orderId", aggregate.ID().String(),
			"oldStatus", oldStatus.String(),
			"error", err)
	}

	return nil
}
