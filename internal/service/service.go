// Package service is the order core: the order aggregate, the status
// transition engine, the payment ledger, and the reconciliation
// procedure that keeps derived money fields and table occupancy
// consistent. Handlers pass in a resolved Actor; all role and
// ownership checks happen here.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/enum"
	"go.uber.org/zap"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the DB methods the order core needs. Satisfied by
// *database.Queries (and its WithTx variant).
type Store interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)

	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	UpdateTableStatus(ctx context.Context, id uuid.UUID, status string) (database.Table, error)

	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (database.Order, error)
	UpdateOrderDerived(ctx context.Context, arg database.UpdateOrderDerivedParams) (database.Order, error)
	UpdateOrderDiscount(ctx context.Context, id uuid.UUID, discountType string, discountValue pgtype.Numeric) (database.Order, error)
	UpdateOrderTable(ctx context.Context, id uuid.UUID, tableID pgtype.UUID) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	UpdateOrderItemQty(ctx context.Context, id uuid.UUID, qty int32, lineTotal pgtype.Numeric) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, id uuid.UUID) error
	SumOrderItemTotals(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)

	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (database.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	SumNonDebtPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)

	CreateOrderStatusLog(ctx context.Context, arg database.CreateOrderStatusLogParams) (database.OrderStatusLog, error)
}

// NewStore creates a Store from a DBTX (pool or tx), so the same
// service code runs inside or outside a transaction.
type NewStore func(db database.DBTX) Store

// Actor is the resolved identity and role classification of the
// principal performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role enum.Role
}

// Service implements the order core operations.
type Service struct {
	pool     TxBeginner
	newStore NewStore
	logger   *zap.Logger
}

func New(pool TxBeginner, newStore NewStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{pool: pool, newStore: newStore, logger: logger}
}
