package order

import (
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// ErrItemIsNotConstructed is returned when an Item instance was not created
// through the NewItem factory method.
var ErrItemIsNotConstructed = errors.New("Item must be created via NewItem constructor")

// Item is a line item owned by exactly one Order. It has its own identity but
// no life of its own outside the aggregate: the Order creates, removes, and
// totals its items. Item holds no reference back to the Order, keeping the
// association one-directional and the wire representation cycle-free.
//
// Item follows these invariants:
//   - Must have a valid unique identifier
//   - Product ID and product name must be non-empty
//   - Quantity must be positive (greater than 0)
//   - Price must be positive (greater than 0)
//   - Can only be created through NewItem constructor
type Item struct {
	// id is the unique identifier for the line item
	id kernel.UUID

	// productID identifies the purchased product
	productID string

	// productName is the display name captured at purchase time
	productName string

	// quantity is the number of units ordered (must be positive)
	quantity int

	// price is the unit price (must be positive)
	price decimal.Decimal

	// isConstructed ensures the item was created via NewItem
	isConstructed bool
}

// NewItem creates a new Item instance with validation. This is the only way
// to create a valid Item, ensuring all business invariants are maintained.
func NewItem(
	id kernel.UUID,
	productID string,
	productName string,
	quantity int,
	price decimal.Decimal,
) (*Item, error) {
	item := &Item{
		isConstructed: true,
	}

	if err := errors.Join(
		item.setID(id),
		item.setProductID(productID),
		item.setProductName(productName),
		item.setQuantity(quantity),
		item.setPrice(price),
	); err != nil {
		return nil, err
	}

	return item, nil
}

// RestoreItem reconstructs an Item from persistence. It applies the same
// validation as NewItem.
func RestoreItem(
	id kernel.UUID,
	productID string,
	productName string,
	quantity int,
	price decimal.Decimal,
) (*Item, error) {
	return NewItem(id, productID, productName, quantity, price)
}

// Validate ensures the Item instance was properly constructed through NewItem.
func (i *Item) Validate() error {
	if i == nil || !i.isConstructed {
		return ErrItemIsNotConstructed
	}

	return nil
}

// IsEqual compares two items by their unique identifiers.
func (i *Item) IsEqual(other *Item) bool {
	return other != nil && i.id.IsEqual(other.id)
}

// ID returns the item's unique identifier.
func (i *Item) ID() kernel.UUID {
	return i.id
}

// ProductID returns the identifier of the purchased product.
func (i *Item) ProductID() string {
	return i.productID
}

// ProductName returns the product display name.
func (i *Item) ProductName() string {
	return i.productName
}

// Quantity returns the number of units ordered.
func (i *Item) Quantity() int {
	return i.quantity
}

// Price returns the unit price.
func (i *Item) Price() decimal.Decimal {
	return i.price
}

// Subtotal returns price multiplied by quantity.
func (i *Item) Subtotal() decimal.Decimal {
	return i.price.Mul(decimal.NewFromInt(int64(i.quantity)))
}

func (i *Item) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	i.id = id
	return nil
}

func (i *Item) setProductID(productID string) error {
	if productID == "" {
		return errs.NewValueIsRequiredError("productID")
	}
	i.productID = productID
	return nil
}

func (i *Item) setProductName(productName string) error {
	if productName == "" {
		return errs.NewValueIsRequiredError("productName")
	}
	i.productName = productName
	return nil
}

func (i *Item) setQuantity(quantity int) error {
	if quantity <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("quantity is invalid", fmt.Errorf("%d is not greater than 0", quantity))
	}
	i.quantity = quantity
	return nil
}

func (i *Item) setPrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return errs.NewValueIsInvalidErrorWithCause("price is invalid", fmt.Errorf("%s is not greater than 0", price))
	}
	i.price = price
	return nil
}
