package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	FullName     string
	Role         string
	CreatedAt    time.Time
}

type Table struct {
	ID        uuid.UUID
	Number    int32
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID        uuid.UUID
	Name      string
	SortOrder int32
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type MenuItem struct {
	ID              uuid.UUID
	CategoryID      uuid.UUID
	Name            string
	Price           pgtype.Numeric
	Description     pgtype.Text
	IsAvailable     bool
	PrepTimeMinutes int32
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Order struct {
	ID             uuid.UUID
	OrderCode      string
	OrderType      string
	TableID        pgtype.UUID
	CustomerName   pgtype.Text
	CustomerPhone  pgtype.Text
	CreatedBy      uuid.UUID
	Status         string
	Notes          pgtype.Text
	DiscountType   string
	DiscountValue  pgtype.Numeric
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	Total          pgtype.Numeric
	PaidTotal      pgtype.Numeric
	DueAmount      pgtype.Numeric
	IsClosed       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	ItemName   string
	UnitPrice  pgtype.Numeric
	Qty        int32
	Notes      pgtype.Text
	LineTotal  pgtype.Numeric
	CreatedAt  time.Time
}

type OrderStatusLog struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	FromStatus string
	ToStatus   string
	ChangedBy  uuid.UUID
	Comment    pgtype.Text
	ChangedAt  time.Time
}

type Payment struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ReceivedBy uuid.UUID
	Method     string
	Amount     pgtype.Numeric
	IsDebt     bool
	DebtNote   pgtype.Text
	PaidAt     time.Time
}
