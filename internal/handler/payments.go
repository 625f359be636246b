package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/enum"
	"github.com/oshxona-pos/api/internal/service"
	"github.com/oshxona-pos/api/internal/ws"
	"go.uber.org/zap"
)

// PaymentServicer defines the service methods payment handlers need.
// Satisfied by *service.Service.
type PaymentServicer interface {
	RecordPayment(ctx context.Context, req service.RecordPaymentRequest) (database.Payment, database.Order, error)
	ReversePayment(ctx context.Context, paymentID uuid.UUID, actor service.Actor) (database.Order, error)
}

// PaymentStore defines the database methods the payment read endpoint
// needs. Satisfied by *database.Queries.
type PaymentStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc    PaymentServicer
	store  PaymentStore
	hub    Broadcaster
	logger *zap.Logger
}

func NewPaymentHandler(svc PaymentServicer, store PaymentStore, hub Broadcaster, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{svc: svc, store: store, hub: hub, logger: logger}
}

// RegisterOrderRoutes mounts the order-scoped payment endpoints;
// expects {id} to be the order id.
func (h *PaymentHandler) RegisterOrderRoutes(r chi.Router) {
	r.Post("/", h.Record)
	r.Get("/", h.List)
}

// RegisterRoutes mounts the top-level payment endpoints.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Delete("/{paymentID}", h.Reverse)
}

type recordPaymentRequest struct {
	Method   string `json:"method"`
	Amount   string `json:"amount"`
	IsDebt   bool   `json:"is_debt"`
	DebtNote string `json:"debt_note"`
}

type paymentResponse struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	ReceivedBy uuid.UUID `json:"received_by"`
	Method     string    `json:"method"`
	Amount     string    `json:"amount"`
	IsDebt     bool      `json:"is_debt"`
	DebtNote   *string   `json:"debt_note"`
	PaidAt     time.Time `json:"paid_at"`
}

// recordPaymentResponse returns both the ledger entry and the order's
// post-payment state so terminals need no second round trip.
type recordPaymentResponse struct {
	Payment paymentResponse `json:"payment"`
	Order   orderResponse   `json:"order"`
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:         p.ID,
		OrderID:    p.OrderID,
		ReceivedBy: p.ReceivedBy,
		Method:     p.Method,
		Amount:     numericToString(p.Amount),
		IsDebt:     p.IsDebt,
		DebtNote:   textPtr(p.DebtNote),
		PaidAt:     p.PaidAt,
	}
}

// Record handles POST /orders/{id}/payments.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, order, err := h.svc.RecordPayment(r.Context(), service.RecordPaymentRequest{
		OrderID:  orderID,
		Method:   req.Method,
		Amount:   req.Amount,
		IsDebt:   req.IsDebt,
		DebtNote: req.DebtNote,
		Actor:    actor,
	})
	if err != nil {
		writeServiceError(w, h.logger, "record payment", err)
		return
	}

	if h.hub != nil {
		if order.Status == enum.OrderStatusPaid {
			h.hub.Broadcast(ws.NewEvent(ws.EventOrderPaid, toOrderResponse(order)))
			if order.TableID.Valid {
				h.hub.Broadcast(ws.NewEvent(ws.EventTableUpdated, map[string]string{
					"table_id": uuid.UUID(order.TableID.Bytes).String(),
					"status":   enum.TableStatusFree,
				}))
			}
		} else {
			h.hub.Broadcast(ws.NewEvent(ws.EventOrderStatusChanged, toOrderResponse(order)))
		}
	}

	writeJSON(w, http.StatusCreated, recordPaymentResponse{
		Payment: toPaymentResponse(payment),
		Order:   toOrderResponse(order),
	})
}

// List handles GET /orders/{id}/payments. Managers see any order's
// payments, waiters only their own orders', chefs none.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	if actor.Role != enum.RoleManager && actor.Role != enum.RoleWaiter {
		writeError(w, http.StatusForbidden, "insufficient role")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("get order for payments", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if actor.Role == enum.RoleWaiter && order.CreatedBy != actor.ID {
		writeError(w, http.StatusForbidden, "not your order")
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("list payments", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reverse handles DELETE /payments/{paymentID}. Manager only; enforced
// in the service layer.
func (h *PaymentHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	order, err := h.svc.ReversePayment(r.Context(), paymentID, actor)
	if err != nil {
		writeServiceError(w, h.logger, "reverse payment", err)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(ws.NewEvent(ws.EventOrderStatusChanged, toOrderResponse(order)))
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}
