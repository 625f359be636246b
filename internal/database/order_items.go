package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, item_name, unit_price, qty, notes, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, menu_item_id, item_name, unit_price, qty, notes, line_total, created_at
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	ItemName   string
	UnitPrice  pgtype.Numeric
	Qty        int32
	Notes      pgtype.Text
	LineTotal  pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.ItemName, arg.UnitPrice, arg.Qty, arg.Notes, arg.LineTotal)
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.ItemName, &it.UnitPrice,
		&it.Qty, &it.Notes, &it.LineTotal, &it.CreatedAt)
	return it, err
}

const getOrderItem = `
SELECT id, order_id, menu_item_id, item_name, unit_price, qty, notes, line_total, created_at
FROM order_items WHERE id = $1
`

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	row := q.db.QueryRow(ctx, getOrderItem, id)
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.ItemName, &it.UnitPrice,
		&it.Qty, &it.Notes, &it.LineTotal, &it.CreatedAt)
	return it, err
}

const updateOrderItemQty = `
UPDATE order_items SET qty = $2, line_total = $3
WHERE id = $1
RETURNING id, order_id, menu_item_id, item_name, unit_price, qty, notes, line_total, created_at
`

func (q *Queries) UpdateOrderItemQty(ctx context.Context, id uuid.UUID, qty int32, lineTotal pgtype.Numeric) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateOrderItemQty, id, qty, lineTotal)
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.ItemName, &it.UnitPrice,
		&it.Qty, &it.Notes, &it.LineTotal, &it.CreatedAt)
	return it, err
}

const deleteOrderItem = `
DELETE FROM order_items WHERE id = $1
`

func (q *Queries) DeleteOrderItem(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItem, id)
	return err
}

const listOrderItemsByOrder = `
SELECT id, order_id, menu_item_id, item_name, unit_price, qty, notes, line_total, created_at
FROM order_items WHERE order_id = $1 ORDER BY created_at, id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.ItemName, &it.UnitPrice,
			&it.Qty, &it.Notes, &it.LineTotal, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const sumOrderItemTotals = `
SELECT COALESCE(SUM(line_total), 0) FROM order_items WHERE order_id = $1
`

func (q *Queries) SumOrderItemTotals(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumOrderItemTotals, orderID).Scan(&n)
	return n, err
}
