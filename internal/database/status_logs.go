package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// The status log is append-only: this file deliberately exposes no
// update or delete statement for order_status_logs.

const createOrderStatusLog = `
INSERT INTO order_status_logs (order_id, from_status, to_status, changed_by, comment)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, from_status, to_status, changed_by, comment, changed_at
`

type CreateOrderStatusLogParams struct {
	OrderID    uuid.UUID
	FromStatus string
	ToStatus   string
	ChangedBy  uuid.UUID
	Comment    pgtype.Text
}

func (q *Queries) CreateOrderStatusLog(ctx context.Context, arg CreateOrderStatusLogParams) (OrderStatusLog, error) {
	row := q.db.QueryRow(ctx, createOrderStatusLog,
		arg.OrderID, arg.FromStatus, arg.ToStatus, arg.ChangedBy, arg.Comment)
	var l OrderStatusLog
	err := row.Scan(&l.ID, &l.OrderID, &l.FromStatus, &l.ToStatus, &l.ChangedBy, &l.Comment, &l.ChangedAt)
	return l, err
}

const listOrderStatusLogsByOrder = `
SELECT id, order_id, from_status, to_status, changed_by, comment, changed_at
FROM order_status_logs WHERE order_id = $1 ORDER BY changed_at, id
`

func (q *Queries) ListOrderStatusLogsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderStatusLog, error) {
	rows, err := q.db.Query(ctx, listOrderStatusLogsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []OrderStatusLog
	for rows.Next() {
		var l OrderStatusLog
		if err := rows.Scan(&l.ID, &l.OrderID, &l.FromStatus, &l.ToStatus, &l.ChangedBy, &l.Comment, &l.ChangedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
