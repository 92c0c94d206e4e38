package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
// It implements a state machine with defined transitions to ensure
// orders follow the correct business workflow.
//
// State transitions:
//
//	Created ──> Paid ──> Processing ──> Shipped ──> Delivered ──> Refunded
//	   │          │           │
//	   └──────────┴───────────┴──────> Cancelled
//
// Cancelled and Refunded are terminal: no transitions leave them.
// Cancellation through Cancel is narrower than the transition table:
// it is allowed only from Created, Paid, and Processing.
//
// Status is a value object that validates state transitions
// and provides string representations for persistence and the wire format.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Created is the initial status when an order is first created.
	Created

	// Paid indicates payment has been received for the order.
	Paid

	// Processing indicates the order is being prepared for shipment.
	Processing

	// Shipped indicates the order has left the warehouse.
	// Cancellation is no longer possible from this point on.
	Shipped

	// Delivered indicates the order has reached the customer.
	Delivered

	// Cancelled indicates the order was cancelled before shipment.
	// This is a terminal state with no further transitions allowed.
	Cancelled

	// Refunded indicates a delivered order was refunded.
	// This is a terminal state, reachable only from Delivered.
	Refunded
)

// getStatusStrings returns a map of Status values to their string representations.
// The strings match the wire format used in events and the API.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:    "UNKNOWN",
		Created:    "CREATED",
		Paid:       "PAID",
		Processing: "PROCESSING",
		Shipped:    "SHIPPED",
		Delivered:  "DELIVERED",
		Cancelled:  "CANCELLED",
		Refunded:   "REFUNDED",
	}
}

// getValidStatusStrings returns a map of only valid Status values.
// Only valid statuses are included to support validation.
func getValidStatusStrings() map[Status]string {
	//nolint:exhaustive // Unknown is intentionally excluded as it's invalid
	return map[Status]string{
		Created:    "CREATED",
		Paid:       "PAID",
		Processing: "PROCESSING",
		Shipped:    "SHIPPED",
		Delivered:  "DELIVERED",
		Cancelled:  "CANCELLED",
		Refunded:   "REFUNDED",
	}
}

// getAllowedTransitions returns the legal transition table.
// The absence of a target in a source's set makes the transition invalid;
// Cancelled and Refunded have empty sets, making them terminal.
func getAllowedTransitions() map[Status][]Status {
	return map[Status][]Status{
		Created:    {Paid, Cancelled},
		Paid:       {Processing, Cancelled},
		Processing: {Shipped, Cancelled},
		Shipped:    {Delivered},
		Delivered:  {Refunded},
		Cancelled:  {},
		Refunded:   {},
	}
}

// StatusFromString parses a Status from its wire representation.
// Returns an error for strings that do not name a valid status.
func StatusFromString(s string) (Status, error) {
	for status, str := range getValidStatusStrings() {
		if str == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause(
		"status is invalid",
		fmt.Errorf("%q is not a valid status", s),
	)
}

// Validate checks if the Status value is valid.
// Unknown (0) and any out-of-range values are invalid.
func (s Status) Validate() error {
	if _, ok := getValidStatusStrings()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire-format name of the status.
//
// Returns "UNKNOWN" for invalid status values. This method implements the
// fmt.Stringer interface and is safe to call on any Status value.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "UNKNOWN"
}

// CanTransitionTo reports whether the transition from s to target is legal
// according to the lifecycle table. Self-transitions are always invalid.
func (s Status) CanTransitionTo(target Status) bool {
	if s == target {
		return false
	}

	allowed, ok := getAllowedTransitions()[s]
	if !ok {
		return false
	}

	for _, next := range allowed {
		if next == target {
			return true
		}
	}
	return false
}

// TransitionTo performs the transition from s to target.
//
// Returns:
//   - (target, nil) on a legal transition
//   - (0, *errs.InvalidStatusTransitionError) if the transition violates the table
//
// This method is used by Order.UpdateStatus to enforce the state machine.
func (s Status) TransitionTo(target Status) (Status, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}

	if !s.CanTransitionTo(target) {
		return 0, errs.NewInvalidStatusTransitionError(s.String(), target.String())
	}

	return target, nil
}

// CanCancel reports whether an order in this status may be cancelled.
// True only for Created, Paid, and Processing. Shipped orders cannot be
// cancelled even though other transitions out of Shipped exist.
func (s Status) CanCancel() bool {
	return s == Created || s == Paid || s == Processing
}

// Cancel transitions the status to Cancelled.
//
// Returns:
//   - (Cancelled, nil) when cancellation is allowed from the current status
//   - (0, *errs.CancellationNotAllowedError) otherwise
func (s Status) Cancel() (Status, error) {
	if !s.CanCancel() {
		return 0, errs.NewCancellationNotAllowedError(s.String())
	}

	return Cancelled, nil
}

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == Cancelled || s == Refunded
}
