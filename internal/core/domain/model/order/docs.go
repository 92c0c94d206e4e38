// Package order contains the order aggregate and its lifecycle state machine.
//
// Order is the aggregate root: it owns its line items, derives its total from
// them, and guards every status change through the Status transition table.
// All mutation goes through AddItem, RemoveItem, UpdateStatus, and Cancel so
// the invariants cannot be bypassed.
package order
