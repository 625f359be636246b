package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/enum"
	"github.com/oshxona-pos/api/internal/money"
	"github.com/oshxona-pos/api/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Mock store ---

// mockStore is an in-memory service.Store. Sums are always computed
// from the live maps, mirroring the SQL aggregate queries.
type mockStore struct {
	menuItems map[uuid.UUID]database.MenuItem
	tables    map[uuid.UUID]database.Table
	orders    map[uuid.UUID]database.Order
	items     map[uuid.UUID]database.OrderItem
	payments  map[uuid.UUID]database.Payment
	logs      []database.OrderStatusLog

	failStatusLog bool // force CreateOrderStatusLog to fail
}

func newMockStore() *mockStore {
	return &mockStore{
		menuItems: make(map[uuid.UUID]database.MenuItem),
		tables:    make(map[uuid.UUID]database.Table),
		orders:    make(map[uuid.UUID]database.Order),
		items:     make(map[uuid.UUID]database.OrderItem),
		payments:  make(map[uuid.UUID]database.Payment),
	}
}

func (m *mockStore) addTable(number int32) database.Table {
	t := database.Table{ID: uuid.New(), Number: number, Status: enum.TableStatusFree, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.tables[t.ID] = t
	return t
}

func (m *mockStore) addMenuItem(name, price string) database.MenuItem {
	mi := database.MenuItem{
		ID:          uuid.New(),
		CategoryID:  uuid.New(),
		Name:        name,
		Price:       money.ToNumeric(decimal.RequireFromString(price)),
		IsAvailable: true,
	}
	m.menuItems[mi.ID] = mi
	return mi
}

func (m *mockStore) GetMenuItem(_ context.Context, id uuid.UUID) (database.MenuItem, error) {
	mi, ok := m.menuItems[id]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return mi, nil
}

func (m *mockStore) GetTable(_ context.Context, id uuid.UUID) (database.Table, error) {
	t, ok := m.tables[id]
	if !ok {
		return database.Table{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *mockStore) UpdateTableStatus(_ context.Context, id uuid.UUID, status string) (database.Table, error) {
	t, ok := m.tables[id]
	if !ok {
		return database.Table{}, pgx.ErrNoRows
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	m.tables[id] = t
	return t, nil
}

func (m *mockStore) CreateOrder(_ context.Context, arg database.CreateOrderParams) (database.Order, error) {
	o := database.Order{
		ID:            uuid.New(),
		OrderCode:     arg.OrderCode,
		OrderType:     arg.OrderType,
		TableID:       arg.TableID,
		CustomerName:  arg.CustomerName,
		CustomerPhone: arg.CustomerPhone,
		CreatedBy:     arg.CreatedBy,
		Status:        enum.OrderStatusNew,
		Notes:         arg.Notes,
		DiscountType:  arg.DiscountType,
		DiscountValue: arg.DiscountValue,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *mockStore) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *mockStore) UpdateOrderStatus(_ context.Context, id uuid.UUID, status string) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	return o, nil
}

func (m *mockStore) UpdateOrderDerived(_ context.Context, arg database.UpdateOrderDerivedParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Subtotal = arg.Subtotal
	o.DiscountAmount = arg.DiscountAmount
	o.Total = arg.Total
	o.PaidTotal = arg.PaidTotal
	o.DueAmount = arg.DueAmount
	o.IsClosed = arg.IsClosed
	o.UpdatedAt = time.Now()
	m.orders[arg.ID] = o
	return o, nil
}

func (m *mockStore) UpdateOrderDiscount(_ context.Context, id uuid.UUID, discountType string, discountValue pgtype.Numeric) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.DiscountType = discountType
	o.DiscountValue = discountValue
	m.orders[id] = o
	return o, nil
}

func (m *mockStore) UpdateOrderTable(_ context.Context, id uuid.UUID, tableID pgtype.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.TableID = tableID
	m.orders[id] = o
	return o, nil
}

func (m *mockStore) DeleteOrder(_ context.Context, id uuid.UUID) error {
	delete(m.orders, id)
	for itemID, it := range m.items {
		if it.OrderID == id {
			delete(m.items, itemID)
		}
	}
	for pID, p := range m.payments {
		if p.OrderID == id {
			delete(m.payments, pID)
		}
	}
	return nil
}

func (m *mockStore) CreateOrderItem(_ context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	it := database.OrderItem{
		ID:         uuid.New(),
		OrderID:    arg.OrderID,
		MenuItemID: arg.MenuItemID,
		ItemName:   arg.ItemName,
		UnitPrice:  arg.UnitPrice,
		Qty:        arg.Qty,
		Notes:      arg.Notes,
		LineTotal:  arg.LineTotal,
		CreatedAt:  time.Now(),
	}
	m.items[it.ID] = it
	return it, nil
}

func (m *mockStore) GetOrderItem(_ context.Context, id uuid.UUID) (database.OrderItem, error) {
	it, ok := m.items[id]
	if !ok {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (m *mockStore) UpdateOrderItemQty(_ context.Context, id uuid.UUID, qty int32, lineTotal pgtype.Numeric) (database.OrderItem, error) {
	it, ok := m.items[id]
	if !ok {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	it.Qty = qty
	it.LineTotal = lineTotal
	m.items[id] = it
	return it, nil
}

func (m *mockStore) DeleteOrderItem(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockStore) SumOrderItemTotals(_ context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	total := decimal.Zero
	for _, it := range m.items {
		if it.OrderID == orderID {
			total = total.Add(money.FromNumeric(it.LineTotal))
		}
	}
	return money.ToNumeric(total), nil
}

func (m *mockStore) CreatePayment(_ context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	p := database.Payment{
		ID:         uuid.New(),
		OrderID:    arg.OrderID,
		ReceivedBy: arg.ReceivedBy,
		Method:     arg.Method,
		Amount:     arg.Amount,
		IsDebt:     arg.IsDebt,
		DebtNote:   arg.DebtNote,
		PaidAt:     time.Now(),
	}
	m.payments[p.ID] = p
	return p, nil
}

func (m *mockStore) GetPayment(_ context.Context, id uuid.UUID) (database.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return database.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockStore) DeletePayment(_ context.Context, id uuid.UUID) error {
	delete(m.payments, id)
	return nil
}

func (m *mockStore) SumNonDebtPaymentsByOrder(_ context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	total := decimal.Zero
	for _, p := range m.payments {
		if p.OrderID == orderID && !p.IsDebt {
			total = total.Add(money.FromNumeric(p.Amount))
		}
	}
	return money.ToNumeric(total), nil
}

func (m *mockStore) CreateOrderStatusLog(_ context.Context, arg database.CreateOrderStatusLogParams) (database.OrderStatusLog, error) {
	if m.failStatusLog {
		return database.OrderStatusLog{}, errors.New("status log insert failed")
	}
	l := database.OrderStatusLog{
		ID:         uuid.New(),
		OrderID:    arg.OrderID,
		FromStatus: arg.FromStatus,
		ToStatus:   arg.ToStatus,
		ChangedBy:  arg.ChangedBy,
		Comment:    arg.Comment,
		ChangedAt:  time.Now(),
	}
	m.logs = append(m.logs, l)
	return l, nil
}

func (m *mockStore) logsFor(orderID uuid.UUID) []database.OrderStatusLog {
	var out []database.OrderStatusLog
	for _, l := range m.logs {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out
}

// --- Mock transaction plumbing ---

type mockTx struct{}

func (m *mockTx) Commit(ctx context.Context) error   { return nil }
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, nil
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *mockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *mockTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return &mockTx{}, nil
}

// --- Shared helpers ---

func newTestService(store *mockStore) *service.Service {
	newStore := func(db database.DBTX) service.Store { return store }
	return service.New(&mockPool{}, newStore, zap.NewNop())
}

func manager() service.Actor { return service.Actor{ID: uuid.New(), Role: enum.RoleManager} }
func waiter() service.Actor  { return service.Actor{ID: uuid.New(), Role: enum.RoleWaiter} }
func chef() service.Actor    { return service.Actor{ID: uuid.New(), Role: enum.RoleChef} }
