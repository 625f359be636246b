package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/enum"
	"github.com/oshxona-pos/api/internal/money"
	"github.com/shopspring/decimal"
)

// Reconcile recomputes all derived order state inside its own
// transaction. It is idempotent: with no intervening mutation, a
// second call produces identical values.
func (s *Service) Reconcile(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
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

// reconcileOrder is the single writer of derived state. It always
// derives from the full current item and payment sets, never from
// deltas, so repeated or concurrent calls cannot double-count. Runs
// inside the caller's transaction.
func reconcileOrder(ctx context.Context, store Store, order database.Order) (database.Order, error) {
	itemSum, err := store.SumOrderItemTotals(ctx, order.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("sum order items: %w", err)
	}
	subtotal := money.Quantize(money.FromNumeric(itemSum))

	discountAmount := discountFor(order.DiscountType, money.FromNumeric(order.DiscountValue), subtotal)

	total := money.Quantize(money.ClampZero(subtotal.Sub(discountAmount)))

	paidSum, err := store.SumNonDebtPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("sum payments: %w", err)
	}
	paidTotal := money.Quantize(money.FromNumeric(paidSum))

	dueAmount := money.Quantize(money.ClampZero(total.Sub(paidTotal)))

	isClosed := enum.IsTerminalStatus(order.Status)

	updated, err := store.UpdateOrderDerived(ctx, database.UpdateOrderDerivedParams{
		ID:             order.ID,
		Subtotal:       money.ToNumeric(subtotal),
		DiscountAmount: money.ToNumeric(discountAmount),
		Total:          money.ToNumeric(total),
		PaidTotal:      money.ToNumeric(paidTotal),
		DueAmount:      money.ToNumeric(dueAmount),
		IsClosed:       isClosed,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update derived fields: %w", err)
	}

	if err := syncTableStatus(ctx, store, updated); err != nil {
		return database.Order{}, err
	}
	return updated, nil
}

// discountFor computes the discount amount for a subtotal, clamped to
// [0, subtotal]. Discount value bounds are validated at write time;
// clamping here keeps totals sane even against historical data.
func discountFor(discountType string, value, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch discountType {
	case enum.DiscountTypePercent:
		amount = money.Quantize(subtotal.Mul(value).Div(decimal.NewFromInt(100)))
	case enum.DiscountTypeAmount:
		amount = money.Quantize(value)
	default:
		return decimal.Zero
	}
	amount = money.ClampZero(amount)
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	return amount
}

// syncTableStatus derives table occupancy from the order's state: a
// non-terminal order occupies its table, a terminal one frees it.
func syncTableStatus(ctx context.Context, store Store, order database.Order) error {
	if !order.TableID.Valid {
		return nil
	}
	tableID := uuid.UUID(order.TableID.Bytes)
	status := enum.TableStatusOccupied
	if enum.IsTerminalStatus(order.Status) {
		status = enum.TableStatusFree
	}
	if _, err := store.UpdateTableStatus(ctx, tableID, status); err != nil {
		return fmt.Errorf("sync table status: %w", err)
	}
	return nil
}

// freeTable releases a table unconditionally. Used when an order is
// deleted or moved off a table.
func freeTable(ctx context.Context, store Store, tableID uuid.UUID) error {
	if _, err := store.UpdateTableStatus(ctx, tableID, enum.TableStatusFree); err != nil {
		return fmt.Errorf("free table: %w", err)
	}
	return nil
}
