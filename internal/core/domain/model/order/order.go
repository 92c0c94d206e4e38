package order

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// the NewOrder factory method. This ensures all orders are properly validated.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")
)

// Order represents a customer order in the system. It is the aggregate root
// that manages the order lifecycle from creation through payment, shipment,
// and delivery, or cancellation.
//
// Order follows these invariants:
//   - Must have a valid unique identifier
//   - Must have a non-empty customer ID and shipping address
//   - Must contain at least one item after creation
//   - Total amount always equals the sum of item subtotals; it is derived,
//     never set directly
//   - Status transitions follow the lifecycle state machine
//   - Can only be created through NewOrder constructor
//
// The Order struct uses private fields to ensure encapsulation and maintains
// its invariants through validated methods.
type Order struct {
	// id is the unique identifier for the order
	id kernel.UUID

	// customerID identifies the customer the order belongs to
	customerID string

	// shippingAddress is the delivery destination
	shippingAddress string

	// status represents the current state in the order lifecycle
	status Status

	// createdAt is set once at construction
	createdAt time.Time

	// updatedAt is refreshed on every status mutation
	updatedAt time.Time

	// totalAmount is derived from items and recomputed on every item mutation
	totalAmount decimal.Decimal

	// items are the line items owned by this order
	items []*Item

	// isConstructed ensures the order was created via NewOrder
	isConstructed bool
}

// NewOrder creates a new Order instance with validation. This is the only way
// to create a valid Order, ensuring all business invariants are maintained.
//
// Parameters:
//   - id: Unique identifier for the order (must be valid UUID)
//   - customerID: Identifier of the owning customer (must be non-empty)
//   - shippingAddress: Delivery destination (must be non-empty)
//   - items: Line items (must be non-empty, each individually valid)
//
// The order starts in Created status with createdAt set to the current time
// and the total computed from the supplied items.
func NewOrder(id kernel.UUID, customerID string, shippingAddress string, items []*Item) (*Order, error) {
	now := time.Now()
	order := &Order{
		status:        Created,
		createdAt:     now,
		updatedAt:     now,
		isConstructed: true,
	}

	if err := errors.Join(
		order.setID(id),
		order.setCustomerID(customerID),
		order.setShippingAddress(shippingAddress),
		order.setItems(items),
	); err != nil {
		return nil, err
	}

	order.recalculateTotal()
	return order, nil
}

// RestoreOrder reconstructs an Order from persistence with its full state.
// The total is recomputed from the items rather than trusted from storage,
// keeping the derived-total invariant intact after rehydration.
func RestoreOrder(
	id kernel.UUID,
	customerID string,
	shippingAddress string,
	status Status,
	createdAt time.Time,
	updatedAt time.Time,
	items []*Item,
) (*Order, error) {
	order := &Order{
		createdAt:     createdAt,
		updatedAt:     updatedAt,
		isConstructed: true,
	}

	if err := errors.Join(
		order.setID(id),
		order.setCustomerID(customerID),
		order.setShippingAddress(shippingAddress),
		order.setStatus(status),
		order.setItems(items),
	); err != nil {
		return nil, err
	}

	order.recalculateTotal()
	return order, nil
}

// Validate ensures the Order instance was properly constructed through NewOrder.
// This prevents bypassing validation by directly instantiating the struct.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}

	return nil
}

// IsEqual compares two orders by their unique identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

// ID returns the order's unique identifier.
func (o *Order) ID() kernel.UUID {
	return o.id
}

// CustomerID returns the identifier of the owning customer.
func (o *Order) CustomerID() string {
	return o.customerID
}

// ShippingAddress returns the delivery destination for the order.
func (o *Order) ShippingAddress() string {
	return o.shippingAddress
}

// Status returns the current status of the order.
func (o *Order) Status() Status {
	return o.status
}

// CreatedAt returns the construction timestamp.
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// UpdatedAt returns the timestamp of the last status mutation.
func (o *Order) UpdatedAt() time.Time {
	return o.updatedAt
}

// TotalAmount returns the derived order total: the sum of price times
// quantity over all items.
func (o *Order) TotalAmount() decimal.Decimal {
	return o.totalAmount
}

// Items returns the order's line items.
// The returned slice is a copy; mutating it does not affect the order.
func (o *Order) Items() []*Item {
	items := make([]*Item, len(o.items))
	copy(items, o.items)
	return items
}

// AddItem appends a line item to the order and recomputes the total.
//
// Returns an error if the item is invalid. Adding the same item value twice
// adds two lines; the total always reflects the current item list exactly.
func (o *Order) AddItem(item *Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	o.items = append(o.items, item)
	o.recalculateTotal()
	return nil
}

// RemoveItem removes the line item with the same identity from the order and
// recomputes the total. Removing an item that is not present is a no-op.
func (o *Order) RemoveItem(item *Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	for i, existing := range o.items {
		if existing.IsEqual(item) {
			o.items = append(o.items[:i], o.items[i+1:]...)
			break
		}
	}

	o.recalculateTotal()
	return nil
}

// UpdateStatus transitions the order to newStatus.
//
// This method enforces the lifecycle state machine: the transition must be
// legal per the transition table, and self-transitions are rejected.
//
// Returns:
//   - nil on a successful transition; status and updatedAt are refreshed
//   - *errs.InvalidStatusTransitionError if the transition is not allowed
func (o *Order) UpdateStatus(newStatus Status) error {
	next, err := o.status.TransitionTo(newStatus)
	if err != nil {
		return err
	}

	o.status = next
	o.updatedAt = time.Now()
	return nil
}

// Cancel transitions the order to Cancelled.
//
// Cancellation is allowed only from Created, Paid, and Processing, a
// narrower rule than the transition table. Both rules agree in forbidding
// cancellation once an order has shipped.
//
// Returns:
//   - nil on successful cancellation
//   - *errs.CancellationNotAllowedError if the current status forbids it
func (o *Order) Cancel() error {
	next, err := o.status.Cancel()
	if err != nil {
		return err
	}

	o.status = next
	o.updatedAt = time.Now()
	return nil
}

// recalculateTotal derives the order total from the current item list.
// Called after every item mutation so the total never drifts.
func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, item := range o.items {
		total = total.Add(item.Subtotal())
	}
	o.totalAmount = total
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setCustomerID(customerID string) error {
	if customerID == "" {
		return errs.NewValueIsRequiredError("customerID")
	}
	o.customerID = customerID
	return nil
}

func (o *Order) setShippingAddress(shippingAddress string) error {
	if shippingAddress == "" {
		return errs.NewValueIsRequiredError("shippingAddress")
	}
	o.shippingAddress = shippingAddress
	return nil
}

func (o *Order) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	o.status = status
	return nil
}

func (o *Order) setItems(items []*Item) error {
	if len(items) == 0 {
		return errs.NewValueIsRequiredError("items")
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	o.items = make([]*Item, len(items))
	copy(o.items, items)
	return nil
}
