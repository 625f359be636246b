package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_code, order_type, table_id, customer_name, customer_phone,
	created_by, status, notes, discount_type, discount_value,
	subtotal, discount_amount, total, paid_total, due_amount, is_closed,
	created_at, updated_at`

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderCode, &o.OrderType, &o.TableID, &o.CustomerName, &o.CustomerPhone,
		&o.CreatedBy, &o.Status, &o.Notes, &o.DiscountType, &o.DiscountValue,
		&o.Subtotal, &o.DiscountAmount, &o.Total, &o.PaidTotal, &o.DueAmount, &o.IsClosed,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// rowScanner matches both pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const createOrder = `
INSERT INTO orders (order_code, order_type, table_id, customer_name, customer_phone,
	created_by, notes, discount_type, discount_value)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderCode     string
	OrderType     string
	TableID       pgtype.UUID
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	CreatedBy     uuid.UUID
	Notes         pgtype.Text
	DiscountType  string
	DiscountValue pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderCode, arg.OrderType, arg.TableID, arg.CustomerName, arg.CustomerPhone,
		arg.CreatedBy, arg.Notes, arg.DiscountType, arg.DiscountValue)
	return scanOrder(row)
}

const getOrder = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR NO KEY UPDATE
`

// GetOrderForUpdate locks the order row to serialize concurrent
// payments, item edits, and status changes against the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrders = `
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::uuid IS NULL OR table_id = $2)
  AND ($3::uuid IS NULL OR created_by = $3)
  AND ($4::timestamptz IS NULL OR created_at >= $4)
  AND ($5::timestamptz IS NULL OR created_at < $5)
ORDER BY created_at DESC
LIMIT $6 OFFSET $7
`

type ListOrdersParams struct {
	Status    pgtype.Text
	TableID   pgtype.UUID
	CreatedBy pgtype.UUID
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status, arg.TableID, arg.CreatedBy, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const updateOrderStatus = `
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, id, status))
}

const updateOrderDerived = `
UPDATE orders
SET subtotal = $2, discount_amount = $3, total = $4,
    paid_total = $5, due_amount = $6, is_closed = $7, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderDerivedParams struct {
	ID             uuid.UUID
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	Total          pgtype.Numeric
	PaidTotal      pgtype.Numeric
	DueAmount      pgtype.Numeric
	IsClosed       bool
}

// UpdateOrderDerived writes the five derived money fields plus the
// closed flag in one statement. Only the reconciliation path calls it.
func (q *Queries) UpdateOrderDerived(ctx context.Context, arg UpdateOrderDerivedParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderDerived,
		arg.ID, arg.Subtotal, arg.DiscountAmount, arg.Total,
		arg.PaidTotal, arg.DueAmount, arg.IsClosed))
}

const updateOrderDiscount = `
UPDATE orders SET discount_type = $2, discount_value = $3, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderDiscount(ctx context.Context, id uuid.UUID, discountType string, discountValue pgtype.Numeric) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderDiscount, id, discountType, discountValue))
}

const updateOrderTable = `
UPDATE orders SET table_id = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderTable(ctx context.Context, id uuid.UUID, tableID pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderTable, id, tableID))
}

const deleteOrder = `
DELETE FROM orders WHERE id = $1
`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrder, id)
	return err
}
