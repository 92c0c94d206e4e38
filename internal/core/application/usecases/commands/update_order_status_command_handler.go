package commands

import (
	"context"
	"log/slog"

	"orderflow/internal/core/ports"
)

// UpdateOrderStatusCommandHandler moves an order to a new lifecycle status.
// Loads the aggregate, asks it to transition, and publishes a status-changed
// event once the new state is committed.
type UpdateOrderStatusCommandHandler struct {
	uowFactory OrderUoWFactory
	publisher  ports.EventPublisher
	logger     *slog.Logger
}

// NewUpdateOrderStatusCommandHandler creates a handler for status transitions.
func NewUpdateOrderStatusCommandHandler(
	uowFactory OrderUoWFactory,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) UpdateOrderStatusCommandHandler {
	return UpdateOrderStatusCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     logger.With("component", "update_order_status_handler"),
	}
}

// Handle processes the status update command.
// The aggregate rejects illegal transitions, so an invalid move leaves both
// the database row and the event stream untouched.
func (h *UpdateOrderStatusCommandHandler) Handle(ctx context.Context, cmd UpdateOrderStatusCommand) error {
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
	if err = aggregate.UpdateStatus(cmd.NewStatus()); err != nil {
		return err
	}

	if err = uow.OrderRepository().Update(ctx, aggregate); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	if err = h.publisher.PublishOrderStatusChanged(ctx, aggregate, oldStatus, aggregate.Status()); err != nil {
		// The transition is already committed; the event is lost, not the write.
		h.logger.ErrorContext(ctx, "Failed to publish order status changed event",
			"orderId", aggregate.ID().String(),
			"oldStatus", oldStatus.String(),
			"newStatus", aggregate.Status().String(),
			"error", err)
	}

	return nil
}
