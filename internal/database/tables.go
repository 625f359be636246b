package database

import (
	"context"

	"github.com/google/uuid"
)

const createTable = `
INSERT INTO tables (number)
VALUES ($1)
RETURNING id, number, status, created_at, updated_at
`

func (q *Queries) CreateTable(ctx context.Context, number int32) (Table, error) {
	row := q.db.QueryRow(ctx, createTable, number)
	var t Table
	err := row.Scan(&t.ID, &t.Number, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const getTable = `
SELECT id, number, status, created_at, updated_at
FROM tables WHERE id = $1
`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	row := q.db.QueryRow(ctx, getTable, id)
	var t Table
	err := row.Scan(&t.ID, &t.Number, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const listTables = `
SELECT id, number, status, created_at, updated_at
FROM tables ORDER BY number
`

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.Number, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const updateTableStatus = `
UPDATE tables SET status = $2, updated_at = now()
WHERE id = $1
RETURNING id, number, status, created_at, updated_at
`

// UpdateTableStatus is called exclusively by the reconciliation path;
// occupancy is derived state and has no direct API.
func (q *Queries) UpdateTableStatus(ctx context.Context, id uuid.UUID, status string) (Table, error) {
	row := q.db.QueryRow(ctx, updateTableStatus, id, status)
	var t Table
	err := row.Scan(&t.ID, &t.Number, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
