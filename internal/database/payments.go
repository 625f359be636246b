package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createPayment = `
INSERT INTO payments (order_id, received_by, method, amount, is_debt, debt_note)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, received_by, method, amount, is_debt, debt_note, paid_at
`

type CreatePaymentParams struct {
	OrderID    uuid.UUID
	ReceivedBy uuid.UUID
	Method     string
	Amount     pgtype.Numeric
	IsDebt     bool
	DebtNote   pgtype.Text
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID, arg.ReceivedBy, arg.Method, arg.Amount, arg.IsDebt, arg.DebtNote)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.ReceivedBy, &p.Method, &p.Amount, &p.IsDebt, &p.DebtNote, &p.PaidAt)
	return p, err
}

const getPayment = `
SELECT id, order_id, received_by, method, amount, is_debt, debt_note, paid_at
FROM payments WHERE id = $1
`

func (q *Queries) GetPayment(ctx context.Context, id uuid.UUID) (Payment, error) {
	row := q.db.QueryRow(ctx, getPayment, id)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.ReceivedBy, &p.Method, &p.Amount, &p.IsDebt, &p.DebtNote, &p.PaidAt)
	return p, err
}

const deletePayment = `
DELETE FROM payments WHERE id = $1
`

func (q *Queries) DeletePayment(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePayment, id)
	return err
}

const listPaymentsByOrder = `
SELECT id, order_id, received_by, method, amount, is_debt, debt_note, paid_at
FROM payments WHERE order_id = $1 ORDER BY paid_at DESC, id
`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.ReceivedBy, &p.Method, &p.Amount, &p.IsDebt, &p.DebtNote, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

const sumNonDebtPaymentsByOrder = `
SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1 AND is_debt = FALSE
`

// SumNonDebtPaymentsByOrder excludes debt payments: they are recorded
// but do not count toward paid_total or due_amount.
func (q *Queries) SumNonDebtPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumNonDebtPaymentsByOrder, orderID).Scan(&n)
	return n, err
}
