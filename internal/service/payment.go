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
	"go.uber.org/zap"
)

// autoCloseComment marks the system-generated SERVED→PAID log entry.
const autoCloseComment = "auto: order fully paid"

// RecordPaymentRequest records a payment or a debt against an order.
type RecordPaymentRequest struct {
	OrderID  uuid.UUID
	Method   string
	Amount   string
	IsDebt   bool
	DebtNote string
	Actor    Actor
}

// RecordPayment persists a payment against a SERVED order and
// recomputes totals in one transaction. If the order is then fully
// paid it auto-closes to PAID in a follow-up transaction; a failure
// there is logged and reported through the returned order's open
// due_amount, never by rolling back the committed payment.
func (s *Service) RecordPayment(ctx context.Context, req RecordPaymentRequest) (database.Payment, database.Order, error) {
	switch req.Method {
	case enum.PaymentMethodCash, enum.PaymentMethodCard, enum.PaymentMethodQR:
	default:
		return database.Payment{}, database.Order{}, fmt.Errorf("%w: invalid payment method %q", ErrValidation, req.Method)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return database.Payment{}, database.Order{}, fmt.Errorf("%w: amount must be > 0", ErrValidation)
	}
	amount = money.Quantize(amount)

	switch req.Actor.Role {
	case enum.RoleManager, enum.RoleWaiter:
	default:
		return database.Payment{}, database.Order{}, fmt.Errorf("%w: role %q cannot accept payments", ErrPermission, string(req.Actor.Role))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Payment{}, database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock the order row first: two concurrent payments must serialize
	// so due_amount never double-counts or goes negative.
	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Payment{}, database.Order{}, fmt.Errorf("%w: order %s", ErrNotFound, req.OrderID)
		}
		return database.Payment{}, database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if order.Status != enum.OrderStatusServed {
		return database.Payment{}, database.Order{}, fmt.Errorf("%w: payments require a SERVED order, order %s is %s",
			ErrInvalidState, order.OrderCode, order.Status)
	}
	if req.Actor.Role == enum.RoleWaiter && order.CreatedBy != req.Actor.ID {
		return database.Payment{}, database.Order{}, fmt.Errorf("%w: WAITER can only accept payments for own orders", ErrPermission)
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:    order.ID,
		ReceivedBy: req.Actor.ID,
		Method:     req.Method,
		Amount:     money.ToNumeric(amount),
		IsDebt:     req.IsDebt,
		DebtNote:   textOrNull(req.DebtNote),
	})
	if err != nil {
		return database.Payment{}, database.Order{}, fmt.Errorf("create payment: %w", err)
	}

	order, err = reconcileOrder(ctx, store, order)
	if err != nil {
		return database.Payment{}, database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Payment{}, database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	// Best-effort auto-closure. The payment above is already committed;
	// a failure here leaves the due amount visible as unresolved.
	if order.Status == enum.OrderStatusServed && money.FromNumeric(order.DueAmount).IsZero() {
		closed, err := s.autoClose(ctx, order.ID, req.Actor)
		if err != nil {
			s.logger.Warn("auto-close after full payment failed",
				zap.String("order_code", order.OrderCode),
				zap.Error(err))
		} else {
			order = closed
		}
	}

	return payment, order, nil
}

// autoClose re-checks the closure condition under the row lock and
// applies the system SERVED→PAID transition.
func (s *Service) autoClose(ctx context.Context, orderID uuid.UUID, actor Actor) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusServed || !money.FromNumeric(order.DueAmount).IsZero() {
		return order, nil
	}

	order, err = applyTransition(ctx, store, order, enum.OrderStatusPaid, actor, autoCloseComment, true)
	if err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// ReversePayment deletes a payment and recomputes totals. Manager
// only. Reversal on a PAID order reopens its due amount but does not
// revert the status; the anomaly stays visible to managers.
func (s *Service) ReversePayment(ctx context.Context, paymentID uuid.UUID, actor Actor) (database.Order, error) {
	if actor.Role != enum.RoleManager {
		return database.Order{}, fmt.Errorf("%w: only MANAGER can reverse payments", ErrPermission)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	payment, err := store.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
		}
		return database.Order{}, fmt.Errorf("get payment: %w", err)
	}

	order, err := store.GetOrderForUpdate(ctx, payment.OrderID)
	if err != nil {
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if err := store.DeletePayment(ctx, payment.ID); err != nil {
		return database.Order{}, fmt.Errorf("delete payment: %w", err)
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
