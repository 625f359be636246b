package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/enum"
	"github.com/oshxona-pos/api/internal/money"
	"github.com/shopspring/decimal"
)

const maxOrderCodeRetries = 3

// CreateOrderRequest is the validated input for opening an order.
type CreateOrderRequest struct {
	OrderType     string
	TableID       string // required for DINE_IN
	CustomerName  string // required for TAKEAWAY
	CustomerPhone string
	Notes         string
	DiscountType  string // defaults to NONE
	DiscountValue string
	Items         []CreateOrderItemRequest
	Actor         Actor
}

// CreateOrderItemRequest is a single initial line item.
type CreateOrderItemRequest struct {
	MenuItemID string
	Qty        int32
	Notes      string
}

// CreateOrderResult is the created order with its items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// CreateOrder validates kind-specific requirements, snapshots menu
// prices, and persists the order plus initial items atomically.
// Retries on order_code unique violations; the 12-hex-char code space
// makes collisions rare, the retry makes them harmless.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := requireEditorRole(req.Actor.Role); err != nil {
		return nil, err
	}

	switch req.OrderType {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeaway:
	default:
		return nil, fmt.Errorf("%w: invalid order_type %q", ErrValidation, req.OrderType)
	}

	var tableID pgtype.UUID
	if req.OrderType == enum.OrderTypeDineIn {
		if req.TableID == "" {
			return nil, fmt.Errorf("%w: table is required for DINE_IN orders", ErrValidation)
		}
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid table id", ErrValidation)
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	if req.OrderType == enum.OrderTypeTakeaway && strings.TrimSpace(req.CustomerName) == "" {
		return nil, fmt.Errorf("%w: customer_name is required for TAKEAWAY orders", ErrValidation)
	}

	discountType, discountValue, err := parseDiscount(req.DiscountType, req.DiscountValue)
	if err != nil {
		return nil, err
	}

	for i, item := range req.Items {
		if item.Qty < 1 {
			return nil, fmt.Errorf("%w: items[%d]: qty must be >= 1", ErrValidation, i)
		}
		if _, err := uuid.Parse(item.MenuItemID); err != nil {
			return nil, fmt.Errorf("%w: items[%d]: invalid menu_item_id", ErrValidation, i)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderCodeRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, tableID, discountType, discountValue)
		if err == nil {
			return result, nil
		}
		if isOrderCodeConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *Service) createOrderTx(ctx context.Context, req CreateOrderRequest, tableID pgtype.UUID, discountType string, discountValue decimal.Decimal) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if tableID.Valid {
		if _, err := store.GetTable(ctx, uuid.UUID(tableID.Bytes)); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: table %s", ErrNotFound, req.TableID)
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderCode:     generateOrderCode(),
		OrderType:     req.OrderType,
		TableID:       tableID,
		CustomerName:  textOrNull(req.CustomerName),
		CustomerPhone: textOrNull(req.CustomerPhone),
		CreatedBy:     req.Actor.ID,
		Notes:         textOrNull(req.Notes),
		DiscountType:  discountType,
		DiscountValue: money.ToNumeric(discountValue),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var items []database.OrderItem
	for i, item := range req.Items {
		created, err := createItemSnapshot(ctx, store, order.ID, item)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		items = append(items, created)
	}

	order, err = reconcileOrder(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &CreateOrderResult{Order: order, Items: items}, nil
}

// createItemSnapshot looks up the menu item and persists a line item
// carrying its name and price as they are right now. Later menu edits
// never touch historical orders.
func createItemSnapshot(ctx context.Context, store Store, orderID uuid.UUID, item CreateOrderItemRequest) (database.OrderItem, error) {
	menuItemID, err := uuid.Parse(item.MenuItemID)
	if err != nil {
		return database.OrderItem{}, fmt.Errorf("%w: invalid menu_item_id", ErrValidation)
	}
	menuItem, err := store.GetMenuItem(ctx, menuItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, fmt.Errorf("%w: menu item %s", ErrNotFound, item.MenuItemID)
		}
		return database.OrderItem{}, fmt.Errorf("get menu item: %w", err)
	}

	unitPrice := money.FromNumeric(menuItem.Price)
	lineTotal := money.Quantize(unitPrice.Mul(decimal.NewFromInt32(item.Qty)))

	return store.CreateOrderItem(ctx, database.CreateOrderItemParams{
		OrderID:    orderID,
		MenuItemID: menuItemID,
		ItemName:   menuItem.Name,
		UnitPrice:  money.ToNumeric(unitPrice),
		Qty:        item.Qty,
		Notes:      textOrNull(item.Notes),
		LineTotal:  money.ToNumeric(lineTotal),
	})
}

// AddItemRequest adds a line item to an open order.
type AddItemRequest struct {
	OrderID    uuid.UUID
	MenuItemID string
	Qty        int32
	Notes      string
	Actor      Actor
}

// AddItem appends a line item and recomputes totals. Closed orders
// reject the edit.
func (s *Service) AddItem(ctx context.Context, req AddItemRequest) (database.OrderItem, database.Order, error) {
	if req.Qty < 1 {
		return database.OrderItem{}, database.Order{}, fmt.Errorf("%w: qty must be >= 1", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.OrderItem{}, database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := s.lockOpenOrderForEdit(ctx, store, req.OrderID, req.Actor)
	if err != nil {
		return database.OrderItem{}, database.Order{}, err
	}

	item, err := createItemSnapshot(ctx, store, order.ID, CreateOrderItemRequest{
		MenuItemID: req.MenuItemID,
		Qty:        req.Qty,
		Notes:      req.Notes,
	})
	if err != nil {
		return database.OrderItem{}, database.Order{}, err
	}

	order, err = reconcileOrder(ctx, store, order)
	if err != nil {
		return database.OrderItem{}, database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.OrderItem{}, database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return item, order, nil
}

// UpdateItemQty changes a line item's quantity, recomputing its line
// total from the snapshotted unit price.
func (s *Service) UpdateItemQty(ctx context.Context, orderID, itemID uuid.UUID, qty int32, actor Actor) (database.OrderItem, database.Order, error) {
	if qty < 1 {
		return database.OrderItem{}, database.Order{}, fmt.Errorf("%w: qty must be >= 1", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.OrderItem{}, database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := s.lockOpenOrderForEdit(ctx, store, orderID, actor)
	if err != nil {
		return database.OrderItem{}, database.Order{}, err
	}

	item, err := getOrderItemOf(ctx, store, order.ID, itemID)
	if err != nil {
		return database.OrderItem{}, database.Order{}, err
	}

	lineTotal := money.Quantize(money.FromNumeric(item.UnitPrice).Mul(decimal.NewFromInt32(qty)))
	item, err = store.UpdateOrderItemQty(ctx, item.ID, qty, money.ToNumeric(lineTotal))
	if err != nil {
		return database.OrderItem{}, database.Order{}, fmt.Errorf("update item qty: %w", err)
	}

	order, err = reconcileOrder(ctx, store, order)
	if err != nil {
		return database.OrderItem{}, database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.OrderItem{}, database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return item, order, nil
}

// RemoveItem deletes a line item and recomputes totals.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID, actor Actor) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := s.lockOpenOrderForEdit(ctx, store, orderID, actor)
	if err != nil {
		return database.Order{}, err
	}

	item, err := getOrderItemOf(ctx, store, order.ID, itemID)
	if err != nil {
		return database.Order{}, err
	}
	if err := store.DeleteOrderItem(ctx, item.ID); err != nil {
		return database.Order{}, fmt.Errorf("delete item: %w", err)
	}

	order, err = reconcileOrder(ctx, store, order)
	if err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// SetDiscount changes the order-level discount and recomputes totals.
func (s *Service) SetDiscount(ctx context.Context, orderID uuid.UUID, discountType, discountValue string, actor Actor) (database.Order, error) {
	dt, dv, err := parseDiscount(discountType, discountValue)
	if err != nil {
		return database.Order{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := s.lockOpenOrderForEdit(ctx, store, orderID, actor)
	if err != nil {
		return database.Order{}, err
	}

	order, err = store.UpdateOrderDiscount(ctx, order.ID, dt, money.ToNumeric(dv))
	if err != nil {
		return database.Order{}, fmt.Errorf("update discount: %w", err)
	}

	order, err = reconcileOrder(ctx, store, order)
	if err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// ReassignTable moves a DINE_IN order to another table, freeing the
// old one.
func (s *Service) ReassignTable(ctx context.Context, orderID uuid.UUID, newTableID string, actor Actor) (database.Order, error) {
	tid, err := uuid.Parse(newTableID)
	if err != nil {
		return database.Order{}, fmt.Errorf("%w: invalid table id", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := s.lockOpenOrderForEdit(ctx, store, orderID, actor)
	if err != nil {
		return database.Order{}, err
	}
	if order.OrderType != enum.OrderTypeDineIn {
		return database.Order{}, fmt.Errorf("%w: only DINE_IN orders have tables", ErrValidation)
	}

	if _, err := store.GetTable(ctx, tid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, fmt.Errorf("%w: table %s", ErrNotFound, newTableID)
		}
		return database.Order{}, fmt.Errorf("get table: %w", err)
	}

	oldTable := order.TableID
	order, err = store.UpdateOrderTable(ctx, order.ID, pgtype.UUID{Bytes: tid, Valid: true})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order table: %w", err)
	}

	if oldTable.Valid && oldTable.Bytes != tid {
		if err := freeTable(ctx, store, uuid.UUID(oldTable.Bytes)); err != nil {
			return database.Order{}, err
		}
	}

	order, err = reconcileOrder(ctx, store, order)
	if err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// DeleteOrder is the administrative escape hatch: manager-only, frees
// the table before the row (and its items, logs, and payments) goes.
func (s *Service) DeleteOrder(ctx context.Context, orderID uuid.UUID, actor Actor) error {
	if actor.Role != enum.RoleManager {
		return fmt.Errorf("%w: only MANAGER can delete orders", ErrPermission)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: order %s", ErrNotFound, orderID)
		}
		return fmt.Errorf("get order: %w", err)
	}

	if order.TableID.Valid {
		if err := freeTable(ctx, store, uuid.UUID(order.TableID.Bytes)); err != nil {
			return err
		}
	}
	if err := store.DeleteOrder(ctx, order.ID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Helpers ---

// lockOpenOrderForEdit locks the order row and applies the shared
// item/discount mutation guards: the order must exist, must not be
// closed, and the actor must be allowed to edit it.
func (s *Service) lockOpenOrderForEdit(ctx context.Context, store Store, orderID uuid.UUID, actor Actor) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if enum.IsTerminalStatus(order.Status) {
		return database.Order{}, fmt.Errorf("%w: order %s is %s", ErrInvalidState, order.OrderCode, order.Status)
	}
	if err := requireEditorRole(actor.Role); err != nil {
		return database.Order{}, err
	}
	if actor.Role == enum.RoleWaiter && order.CreatedBy != actor.ID {
		return database.Order{}, fmt.Errorf("%w: WAITER can only edit own orders", ErrPermission)
	}
	return order, nil
}

// requireEditorRole admits the roles that may compose orders. CHEF
// moves orders through the kitchen but never edits their contents.
func requireEditorRole(role enum.Role) error {
	switch role {
	case enum.RoleManager, enum.RoleWaiter:
		return nil
	}
	return fmt.Errorf("%w: role %q cannot edit orders", ErrPermission, string(role))
}

func getOrderItemOf(ctx context.Context, store Store, orderID, itemID uuid.UUID) (database.OrderItem, error) {
	item, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, fmt.Errorf("%w: order item %s", ErrNotFound, itemID)
		}
		return database.OrderItem{}, fmt.Errorf("get order item: %w", err)
	}
	if item.OrderID != orderID {
		return database.OrderItem{}, fmt.Errorf("%w: order item %s", ErrNotFound, itemID)
	}
	return item, nil
}

// parseDiscount validates the discount kind and its value bounds:
// PERCENT within [0,100], AMOUNT non-negative.
func parseDiscount(discountType, discountValue string) (string, decimal.Decimal, error) {
	if discountType == "" {
		discountType = enum.DiscountTypeNone
	}
	switch discountType {
	case enum.DiscountTypeNone:
		return discountType, decimal.Zero, nil
	case enum.DiscountTypePercent, enum.DiscountTypeAmount:
	default:
		return "", decimal.Zero, fmt.Errorf("%w: invalid discount_type %q", ErrValidation, discountType)
	}

	value, err := decimal.NewFromString(discountValue)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("%w: invalid discount_value", ErrValidation)
	}
	if value.IsNegative() {
		return "", decimal.Zero, fmt.Errorf("%w: discount_value must be >= 0", ErrValidation)
	}
	if discountType == enum.DiscountTypePercent && value.GreaterThan(decimal.NewFromInt(100)) {
		return "", decimal.Zero, fmt.Errorf("%w: PERCENT discount must be within [0,100]", ErrValidation)
	}
	return discountType, value, nil
}

// generateOrderCode produces a 12-uppercase-hex order code.
func generateOrderCode() string {
	u := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:12])
}

// isOrderCodeConflict checks for a unique violation on orders.order_code.
func isOrderCodeConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_code_key"
	}
	return false
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
