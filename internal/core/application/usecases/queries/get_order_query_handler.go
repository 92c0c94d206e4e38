package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GetOrderQueryHandler reads a single order with its items straight from the
// database, skipping aggregate rehydration.
type GetOrderQueryHandler struct {
	db *gorm.DB
}

// NewGetOrderQueryHandler creates a handler for single-order lookups.
func NewGetOrderQueryHandler(db *gorm.DB) GetOrderQueryHandler {
	return GetOrderQueryHandler{db: db}
}

// Handle executes the query.
// Returns *errs.ObjectNotFoundError when no order has the given id.
func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (OrderResponse, error) {
	if err := query.Validate(); err != nil {
		return OrderResponse{}, err
	}

	var (
		id              uuid.UUID
		customerID      string
		shippingAddress string
		status          string
		totalAmount     decimal.Decimal
		createdAt       time.Time
		updatedAt       time.Time
	)

	row := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			customer_id,
			shipping_address,
			status,
			total_amount,
			created_at,
			updated_at
		FROM orders
		WHERE id = ?
	`, query.OrderID().String()).Row()

	err := row.Scan(&id, &customerID, &shippingAddress, &status, &totalAmount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return OrderResponse{}, errs.NewObjectNotFoundError("orderID", query.OrderID())
	}
	if err != nil {
		return OrderResponse{}, err
	}

	orderID, err := kernel.UUIDFromBytes(id[:])
	if err != nil {
		return OrderResponse{}, err
	}

	items, err := loadOrderItems(ctx, h.db, orderID)
	if err != nil {
		return OrderResponse{}, err
	}

	return OrderResponse{
		ID:              orderID,
		CustomerID:      customerID,
		ShippingAddress: shippingAddress,
		Status:          status,
		TotalAmount:     totalAmount,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
		Items:           items,
	}, nil
}

func loadOrderItems(ctx context.Context, db *gorm.DB, orderID kernel.UUID) ([]OrderItemResponse, error) {
	items := make([]OrderItemResponse, 0)

	rows, err := db.WithContext(ctx).Raw(`
		SELECT
			id,
			product_id,
			product_name,
			quantity,
			price
		FROM order_items
		WHERE order_id = ?
		ORDER BY id
	`, orderID.String()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          uuid.UUID
			productID   string
			productName string
			quantity    int
			price       decimal.Decimal
		)

		if err = rows.Scan(&id, &productID, &productName, &quantity, &price); err != nil {
			return nil, err
		}

		itemID, idErr := kernel.UUIDFromBytes(id[:])
		if idErr != nil {
			return nil, idErr
		}

		items = append(items, OrderItemResponse{
			ID:          itemID,
			ProductID:   productID,
			ProductName: productName,
			Quantity:    quantity,
			Price:       price,
			Subtotal:    price.Mul(decimal.NewFromInt(int64(quantity))),
		})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
