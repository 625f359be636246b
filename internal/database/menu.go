package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createCategory = `
INSERT INTO categories (name, sort_order)
VALUES ($1, $2)
RETURNING id, name, sort_order, is_active, created_at, updated_at
`

func (q *Queries) CreateCategory(ctx context.Context, name string, sortOrder int32) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory, name, sortOrder)
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listCategories = `
SELECT id, name, sort_order, is_active, created_at, updated_at
FROM categories
WHERE is_active = TRUE
ORDER BY sort_order, name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const createMenuItem = `
INSERT INTO menu_items (category_id, name, price, description, prep_time_minutes)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, category_id, name, price, description, is_available, prep_time_minutes, created_at, updated_at
`

type CreateMenuItemParams struct {
	CategoryID      uuid.UUID
	Name            string
	Price           pgtype.Numeric
	Description     pgtype.Text
	PrepTimeMinutes int32
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.CategoryID, arg.Name, arg.Price, arg.Description, arg.PrepTimeMinutes)
	var m MenuItem
	err := row.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.Description,
		&m.IsAvailable, &m.PrepTimeMinutes, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const getMenuItem = `
SELECT id, category_id, name, price, description, is_available, prep_time_minutes, created_at, updated_at
FROM menu_items WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItem, id)
	var m MenuItem
	err := row.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.Description,
		&m.IsAvailable, &m.PrepTimeMinutes, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const listMenuItems = `
SELECT mi.id, mi.category_id, mi.name, mi.price, mi.description, mi.is_available, mi.prep_time_minutes, mi.created_at, mi.updated_at
FROM menu_items mi
JOIN categories c ON c.id = mi.category_id
WHERE ($1::uuid IS NULL OR mi.category_id = $1)
ORDER BY c.sort_order, c.name, mi.name
`

func (q *Queries) ListMenuItems(ctx context.Context, categoryID pgtype.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.Description,
			&m.IsAvailable, &m.PrepTimeMinutes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
