package order_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustItem(t *testing.T, productID, productName string, quantity int, price string) *order.Item {
	t.Helper()
	item, err := order.NewItem(kernel.NewUUID(), productID, productName, quantity, decimal.RequireFromString(price))
	require.NoError(t, err)
	return item
}

func TestNewOrder(t *testing.T) {
	validID := kernel.NewUUID()

	t.Run("should create valid order with all valid parameters", func(t *testing.T) {
		items := []*order.Item{mustItem(t, "prod-1", "Widget", 2, "10.00")}

		o, err := order.NewOrder(validID, "customer-1", "221B Baker Street", items)

		require.NoError(t, err)
		assert.NotNil(t, o)
		require.NoError(t, o.Validate())
		assert.True(t, o.ID().IsEqual(validID))
		assert.Equal(t, "customer-1", o.CustomerID())
		assert.Equal(t, "221B Baker Street", o.ShippingAddress())
		assert.Equal(t, order.Created, o.Status())
		assert.Len(t, o.Items(), 1)
		assert.False(t, o.CreatedAt().IsZero())
		assert.Equal(t, o.CreatedAt(), o.UpdatedAt())
	})

	t.Run("should compute total from items", func(t *testing.T) {
		// qty 2 x 10.00 plus qty 1 x 15.50 => 35.50
		items := []*order.Item{
			mustItem(t, "prod-1", "Widget", 2, "10.00"),
			mustItem(t, "prod-2", "Gadget", 1, "15.50"),
		}

		o, err := order.NewOrder(validID, "customer-1", "221B Baker Street", items)

		require.NoError(t, err)
		assert.Equal(t, "35.50", o.TotalAmount().StringFixed(2))
		assert.Equal(t, order.Created, o.Status())
	})

	t.Run("should fail with invalid UUID", func(t *testing.T) {
		var invalidID kernel.UUID
		items := []*order.Item{mustItem(t, "prod-1", "Widget", 1, "1.00")}

		o, err := order.NewOrder(invalidID, "customer-1", "221B Baker Street", items)

		require.Error(t, err)
		assert.Nil(t, o)
		assert.Contains(t, err.Error(), "UUID must be created")
	})

	t.Run("should fail with empty customer ID", func(t *testing.T) {
		items := []*order.Item{mustItem(t, "prod-1", "Widget", 1, "1.00")}

		o, err := order.NewOrder(validID, "", "221B Baker Street", items)

		require.Error(t, err)
		assert.Nil(t, o)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.Contains(t, err.Error(), "customerID")
	})

	t.Run("should fail with empty shipping address", func(t *testing.T) {
		items := []*order.Item{mustItem(t, "prod-1", "Widget", 1, "1.00")}

		o, err := order.NewOrder(validID, "customer-1", "", items)

		require.Error(t, err)
		assert.Nil(t, o)
		assert.Contains(t, err.Error(), "shippingAddress")
	})

	t.Run("should fail with no items", func(t *testing.T) {
		o, err := order.NewOrder(validID, "customer-1", "221B Baker Street", nil)

		require.Error(t, err)
		assert.Nil(t, o)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.Contains(t, err.Error(), "items")
	})

	t.Run("should fail with an invalid item in the list", func(t *testing.T) {
		items := []*order.Item{
			mustItem(t, "prod-1", "Widget", 1, "1.00"),
			{},
		}

		o, err := order.NewOrder(validID, "customer-1", "221B Baker Street", items)

		require.Error(t, err)
		assert.Nil(t, o)
		require.ErrorIs(t, err, order.ErrItemIsNotConstructed)
	})

	t.Run("should handle multiple validation errors", func(t *testing.T) {
		var invalidID kernel.UUID

		o, err := order.NewOrder(invalidID, "", "", nil)

		require.Error(t, err)
		assert.Nil(t, o)
		assert.Contains(t, err.Error(), "UUID must be created")
		assert.Contains(t, err.Error(), "customerID")
		assert.Contains(t, err.Error(), "shippingAddress")
		assert.Contains(t, err.Error(), "items")
	})
}

func TestRestoreOrder(t *testing.T) {
	t.Run("should restore order with persisted state", func(t *testing.T) {
		id := kernel.NewUUID()
		createdAt := time.Now().Add(-time.Hour)
		updatedAt := time.Now().Add(-time.Minute)
		items := []*order.Item{mustItem(t, "prod-1", "Widget", 2, "10.00")}

		o, err := order.RestoreOrder(id, "customer-1", "221B Baker Street", order.Shipped, createdAt, updatedAt, items)

		require.NoError(t, err)
		assert.Equal(t, order.Shipped, o.Status())
		assert.Equal(t, createdAt, o.CreatedAt())
		assert.Equal(t, updatedAt, o.UpdatedAt())
	})

	t.Run("should recompute total instead of trusting storage", func(t *testing.T) {
		items := []*order.Item{
			mustItem(t, "prod-1", "Widget", 3, "2.50"),
			mustItem(t, "prod-2", "Gadget", 1, "0.25"),
		}

		o, err := order.RestoreOrder(
			kernel.NewUUID(), "customer-1", "221B Baker Street",
			order.Paid, time.Now(), time.Now(), items,
		)

		require.NoError(t, err)
		assert.Equal(t, "7.75", o.TotalAmount().StringFixed(2))
	})

	t.Run("should fail with invalid status", func(t *testing.T) {
		items := []*order.Item{mustItem(t, "prod-1", "Widget", 1, "1.00")}

		o, err := order.RestoreOrder(
			kernel.NewUUID(), "customer-1", "221B Baker Street",
			order.Unknown, time.Now(), time.Now(), items,
		)

		require.Error(t, err)
		assert.Nil(t, o)
		assert.Contains(t, err.Error(), "status is invalid")
	})
}

func TestOrder_Validate(t *testing.T) {
	t.Run("should fail validation for nil order", func(t *testing.T) {
		var o *order.Order

		err := o.Validate()

		require.Error(t, err)
		assert.Equal(t, order.ErrOrderIsNotConstructed, err)
	})

	t.Run("should fail validation for zero value order", func(t *testing.T) {
		var o order.Order

		err := o.Validate()

		require.Error(t, err)
		assert.Equal(t, order.ErrOrderIsNotConstructed, err)
	})
}

func TestOrder_AddItem_RemoveItem(t *testing.T) {
	newOrder := func(t *testing.T) *order.Order {
		t.Helper()
		items := []*order.Item{mustItem(t, "prod-1", "Widget", 2, "10.00")}
		o, err := order.NewOrder(kernel.NewUUID(), "customer-1", "221B Baker Street", items)
		require.NoError(t, err)
		return o
	}

	// expectedTotal recomputes the invariant independently of the aggregate.
	expectedTotal := func(o *order.Order) string {
		total := decimal.Zero
		for _, item := range o.Items() {
			total = total.Add(item.Price().Mul(decimal.NewFromInt(int64(item.Quantity()))))
		}
		return total.StringFixed(2)
	}

	t.Run("should recompute total after adding an item", func(t *testing.T) {
		o := newOrder(t)

		err := o.AddItem(mustItem(t, "prod-2", "Gadget", 1, "15.50"))

		require.NoError(t, err)
		assert.Equal(t, "35.50", o.TotalAmount().StringFixed(2))
		assert.Len(t, o.Items(), 2)
	})

	t.Run("should recompute total after removing an item", func(t *testing.T) {
		o := newOrder(t)
		extra := mustItem(t, "prod-2", "Gadget", 1, "15.50")
		require.NoError(t, o.AddItem(extra))

		err := o.RemoveItem(extra)

		require.NoError(t, err)
		assert.Equal(t, "20.00", o.TotalAmount().StringFixed(2))
		assert.Len(t, o.Items(), 1)
	})

	t.Run("should keep total consistent across arbitrary sequences", func(t *testing.T) {
		o := newOrder(t)
		a := mustItem(t, "prod-a", "Alpha", 3, "1.25")
		b := mustItem(t, "prod-b", "Beta", 1, "99.99")
		c := mustItem(t, "prod-c", "Gamma", 10, "0.10")

		steps := []func() error{
			func() error { return o.AddItem(a) },
			func() error { return o.AddItem(b) },
			func() error { return o.RemoveItem(a) },
			func() error { return o.AddItem(c) },
			func() error { return o.RemoveItem(b) },
			func() error { return o.RemoveItem(c) },
		}

		for i, step := range steps {
			require.NoError(t, step())
			assert.Equal(t, expectedTotal(o), o.TotalAmount().StringFixed(2),
				"total drifted after step %d", i)
		}
	})

	t.Run("should treat removing an absent item as a no-op", func(t *testing.T) {
		o := newOrder(t)
		absent := mustItem(t, "prod-x", "Stranger", 1, "1.00")

		err := o.RemoveItem(absent)

		require.NoError(t, err)
		assert.Equal(t, "20.00", o.TotalAmount().StringFixed(2))
		assert.Len(t, o.Items(), 1)
	})

	t.Run("should reject invalid items", func(t *testing.T) {
		o := newOrder(t)

		err := o.AddItem(&order.Item{})

		require.Error(t, err)
		assert.Equal(t, order.ErrItemIsNotConstructed, err)
	})

	t.Run("should not expose internal item slice", func(t *testing.T) {
		o := newOrder(t)

		items := o.Items()
		items[0] = nil

		assert.NotNil(t, o.Items()[0])
	})
}

func TestOrder_UpdateStatus(t *testing.T) {
	newOrder := func(t *testing.T) *order.Order {
		t.Helper()
		items := []*order.Item{mustItem(t, "prod-1", "Widget", 2, "10.00")}
		o, err := order.NewOrder(kernel.NewUUID(), "customer-1", "221B Baker Street", items)
		require.NoError(t, err)
		return o
	}

	t.Run("should walk the happy path to Refunded", func(t *testing.T) {
		o := newOrder(t)

		for _, next := range []order.Status{
			order.Paid, order.Processing, order.Shipped, order.Delivered, order.Refunded,
		} {
			require.NoError(t, o.UpdateStatus(next))
			assert.Equal(t, next, o.Status())
		}
	})

	t.Run("should refresh updatedAt on status change", func(t *testing.T) {
		o := newOrder(t)
		before := o.UpdatedAt()

		time.Sleep(time.Millisecond)
		require.NoError(t, o.UpdateStatus(order.Paid))

		assert.True(t, o.UpdatedAt().After(before))
	})

	t.Run("should fail transition from Created to Delivered", func(t *testing.T) {
		o := newOrder(t)

		err := o.UpdateStatus(order.Delivered)

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidStatusTransition)
		assert.Contains(t, err.Error(), "from CREATED to DELIVERED")
		assert.Equal(t, order.Created, o.Status())
	})

	t.Run("should fail self-transition", func(t *testing.T) {
		o := newOrder(t)

		err := o.UpdateStatus(order.Created)

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidStatusTransition)
	})

	t.Run("should not mutate status on failed transition", func(t *testing.T) {
		o := newOrder(t)
		before := o.UpdatedAt()

		require.Error(t, o.UpdateStatus(order.Refunded))

		assert.Equal(t, order.Created, o.Status())
		assert.Equal(t, before, o.UpdatedAt())
	})
}

func TestOrder_Cancel(t *testing.T) {
	orderInStatus := func(t *testing.T, target order.Status) *order.Order {
		t.Helper()
		items := []*order.Item{mustItem(t, "prod-1", "Widget", 2, "10.00")}
		o, err := order.RestoreOrder(
			kernel.NewUUID(), "customer-1", "221B Baker Street",
			target, time.Now(), time.Now(), items,
		)
		require.NoError(t, err)
		return o
	}

	t.Run("should cancel from cancellable statuses", func(t *testing.T) {
		for _, status := range []order.Status{order.Created, order.Paid, order.Processing} {
			o := orderInStatus(t, status)

			require.NoError(t, o.Cancel())
			assert.Equal(t, order.Cancelled, o.Status())
		}
	})

	t.Run("should fail to cancel a delivered order", func(t *testing.T) {
		o := orderInStatus(t, order.Delivered)

		err := o.Cancel()

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrCancellationNotAllowed)
		assert.Contains(t, err.Error(), "cannot cancel order in status: DELIVERED")
		assert.Equal(t, order.Delivered, o.Status())
	})

	t.Run("should fail to cancel a shipped order", func(t *testing.T) {
		o := orderInStatus(t, order.Shipped)

		err := o.Cancel()

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrCancellationNotAllowed)
	})

	t.Run("should fail to cancel twice", func(t *testing.T) {
		o := orderInStatus(t, order.Created)
		require.NoError(t, o.Cancel())

		err := o.Cancel()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot cancel order in status: CANCELLED")
	})
}
