package service

import "errors"

// Error kinds surfaced by the order core. Callers classify with
// errors.Is; messages wrapped around these carry order/status/actor
// context for user-facing rendering.
var (
	// ErrValidation marks malformed input: a missing required field for
	// the order kind, an out-of-range discount, a bad quantity.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced order, item, menu item, table, or
	// payment that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIllegalTransition marks a status change along an edge that is
	// not in the transition graph.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrForbiddenTransition marks a direct request to PAID; that status
	// is only reachable through full payment.
	ErrForbiddenTransition = errors.New("status not directly requestable")

	// ErrPermission marks a role or ownership check failure.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidState marks an operation against an order in the wrong
	// status, such as a payment before SERVED or an item edit on a
	// closed order.
	ErrInvalidState = errors.New("invalid order state")
)
