package enum

// --- Order lifecycle (CHECK constrained in DB) ---

const (
	OrderStatusNew      = "NEW"
	OrderStatusCooking  = "COOKING"
	OrderStatusReady    = "READY"
	OrderStatusServed   = "SERVED"
	OrderStatusPaid     = "PAID"
	OrderStatusCanceled = "CANCELED"
)

// IsTerminalStatus reports whether an order in this status is closed.
// Terminal orders release their table.
func IsTerminalStatus(s string) bool {
	return s == OrderStatusPaid || s == OrderStatusCanceled
}

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
)

const (
	TableStatusFree     = "FREE"
	TableStatusOccupied = "OCCUPIED"
)

const (
	DiscountTypeNone    = "NONE"
	DiscountTypePercent = "PERCENT"
	DiscountTypeAmount  = "AMOUNT"
)

const (
	PaymentMethodCash = "CASH"
	PaymentMethodCard = "CARD"
	PaymentMethodQR   = "QR"
)

// --- Role classification ---

// Role is the closed capability classification of an acting principal.
// Every permission check in the order core consumes this type; nothing
// else may compare raw role strings.
type Role string

const (
	RoleManager Role = "MANAGER"
	RoleWaiter  Role = "WAITER"
	RoleChef    Role = "CHEF"
	RoleNone    Role = ""
)

// ClassifyRole maps a stored role string onto the closed Role enum.
// Unknown or empty strings classify as RoleNone, which is authorized
// for nothing.
func ClassifyRole(s string) Role {
	switch Role(s) {
	case RoleManager, RoleWaiter, RoleChef:
		return Role(s)
	}
	return RoleNone
}
