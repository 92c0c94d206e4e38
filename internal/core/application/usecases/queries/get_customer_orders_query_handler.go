package queries

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GetCustomerOrdersQueryHandler reads a customer's order history from the
// database. Returns an empty slice when the customer has no orders.
type GetCustomerOrdersQueryHandler struct {
	db *gorm.DB
}

// NewGetCustomerOrdersQueryHandler creates a handler for customer order history queries.
func NewGetCustomerOrdersQueryHandler(db *gorm.DB) GetCustomerOrdersQueryHandler {
	return GetCustomerOrdersQueryHandler{db: db}
}

// Handle executes the query.
// Results are sorted newest first so recent activity leads the list.
func (h GetCustomerOrdersQueryHandler) Handle(
	ctx context.Context,
	query GetCustomerOrdersQuery,
) ([]OrderResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	orders := make([]OrderResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			customer_id,
			shipping_address,
			status,
			total_amount,
			created_at,
			updated_at
		FROM orders
		WHERE customer_id = ?
		ORDER BY created_at DESC
	`, query.CustomerID()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id              uuid.UUID
			customerID      string
			shippingAddress string
			status          string
			totalAmount     decimal.Decimal
			createdAt       time.Time
			updatedAt       time.Time
		)

		if err = rows.Scan(
			&id, &customerID, &shippingAddress, &status, &totalAmount, &createdAt, &updatedAt,
		); err != nil {
			return nil, err
		}

		orderID, idErr := kernel.UUIDFromBytes(id[:])
		if idErr != nil {
			return nil, idErr
		}

		orders = append(orders, OrderResponse{
			ID:              orderID,
			CustomerID:      customerID,
			ShippingAddress: shippingAddress,
			Status:          status,
			TotalAmount:     totalAmount,
			CreatedAt:       createdAt,
			UpdatedAt:       updatedAt,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, itemsErr := loadOrderItems(ctx, h.db, orders[i].ID)
		if itemsErr != nil {
			return nil, itemsErr
		}
		orders[i].Items = items
	}

	return orders, nil
}
