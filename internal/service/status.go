package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/enum"
)

// transitionKey is one directed edge of the order status graph.
type transitionKey struct {
	From string
	To   string
}

// transitionRoles is the single authoritative transition table: the
// keys define the legal graph, the values the roles allowed to request
// each edge. SERVED→PAID carries no roles because it is reachable only
// through the payment ledger's auto-closure, never by request.
var transitionRoles = map[transitionKey][]enum.Role{
	{enum.OrderStatusNew, enum.OrderStatusCooking}:      {enum.RoleManager, enum.RoleChef},
	{enum.OrderStatusCooking, enum.OrderStatusReady}:    {enum.RoleManager, enum.RoleChef},
	{enum.OrderStatusReady, enum.OrderStatusServed}:     {enum.RoleManager, enum.RoleWaiter},
	{enum.OrderStatusNew, enum.OrderStatusCanceled}:     {enum.RoleManager, enum.RoleWaiter},
	{enum.OrderStatusCooking, enum.OrderStatusCanceled}: {enum.RoleManager},
	{enum.OrderStatusReady, enum.OrderStatusCanceled}:   {enum.RoleManager},
	{enum.OrderStatusServed, enum.OrderStatusCanceled}:  {enum.RoleManager},
	{enum.OrderStatusServed, enum.OrderStatusPaid}:      nil,
}

// ChangeStatusRequest is a user-requested status transition.
type ChangeStatusRequest struct {
	OrderID  uuid.UUID
	ToStatus string
	Comment  string
	Actor    Actor
}

// ChangeStatus validates and applies a status transition atomically:
// status write, audit log append, and derived-state reconciliation
// either all commit or the order is left unchanged.
func (s *Service) ChangeStatus(ctx context.Context, req ChangeStatusRequest) (database.Order, error) {
	switch req.ToStatus {
	case enum.OrderStatusNew, enum.OrderStatusCooking, enum.OrderStatusReady,
		enum.OrderStatusServed, enum.OrderStatusPaid, enum.OrderStatusCanceled:
	default:
		return database.Order{}, fmt.Errorf("%w: unknown status %q", ErrValidation, req.ToStatus)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, fmt.Errorf("%w: order %s", ErrNotFound, req.OrderID)
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	order, err = applyTransition(ctx, store, order, req.ToStatus, req.Actor, req.Comment, false)
	if err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// applyTransition runs the transition engine inside the caller's
// transaction. system=true is the payment ledger's auto-closure path:
// it skips the role gate but still walks the graph.
func applyTransition(ctx context.Context, store Store, order database.Order, toStatus string, actor Actor, comment string, system bool) (database.Order, error) {
	fromStatus := order.Status

	// Same-status request is a silent success: no write, no log entry.
	if fromStatus == toStatus {
		return order, nil
	}

	roles, inGraph := transitionRoles[transitionKey{fromStatus, toStatus}]
	if !inGraph {
		return database.Order{}, fmt.Errorf("%w: %s -> %s (order %s)",
			ErrIllegalTransition, fromStatus, toStatus, order.OrderCode)
	}

	if !system {
		if toStatus == enum.OrderStatusPaid {
			return database.Order{}, fmt.Errorf("%w: PAID is reached only via full payment (order %s)",
				ErrForbiddenTransition, order.OrderCode)
		}
		if !roleIn(roles, actor.Role) {
			return database.Order{}, fmt.Errorf("%w: role %s may not move %s -> %s (order %s)",
				ErrPermission, string(actor.Role), fromStatus, toStatus, order.OrderCode)
		}
		if actor.Role == enum.RoleWaiter && order.CreatedBy != actor.ID {
			return database.Order{}, fmt.Errorf("%w: WAITER can only change own orders (order %s)",
				ErrPermission, order.OrderCode)
		}
	}

	order, err := store.UpdateOrderStatus(ctx, order.ID, toStatus)
	if err != nil {
		return database.Order{}, fmt.Errorf("update status: %w", err)
	}

	if _, err := store.CreateOrderStatusLog(ctx, database.CreateOrderStatusLogParams{
		OrderID:    order.ID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		ChangedBy:  actor.ID,
		Comment:    textOrNull(comment),
	}); err != nil {
		return database.Order{}, fmt.Errorf("append status log: %w", err)
	}

	return reconcileOrder(ctx, store, order)
}

func roleIn(roles []enum.Role, role enum.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
