package commands

import (
	"context"
	"log/slog"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

// CreateOrderCommandHandler handles the business logic for order creation.
// Builds the aggregate, persists it inside a unit of work, and publishes an
// order-created event once the commit succeeds.
//
// Persistence and publication are two independent steps: a publish failure
// after a successful commit is logged and swallowed, leaving the persisted
// order without its announcement. Closing that window needs an outbox, which
// this handler does not implement.
type CreateOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	publisher  ports.EventPublisher
	logger     *slog.Logger
}

// NewCreateOrderCommandHandler creates a handler for order creation operations.
func NewCreateOrderCommandHandler(
	uowFactory OrderUoWFactory,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     logger.With("component", "create_order_handler"),
	}
}

// Handle processes the order creation command.
// Builds the order with its items, computes the total from the items, and
// persists the aggregate transactionally before announcing the creation.
func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	items := make([]*order.Item, 0, len(cmd.Items()))
	for _, input := range cmd.Items() {
		item, err := order.NewItem(kernel.NewUUID(), input.ProductID, input.ProductName, input.Quantity, input.Price)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	aggregate, err := order.NewOrder(cmd.OrderID(), cmd.CustomerID(), cmd.ShippingAddress(), items)
	if err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, aggregate); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	if err = h.publisher.PublishOrderCreated(ctx, aggregate); err != nil {
		// The order is already committed; the event is lost, not the write.
		h.logger.ErrorContext(ctx, "Failed to publish order created event",
			"orderId", aggregate.ID().String(), "error", err)
	}

	return nil
}
