package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/enum"
	"github.com/oshxona-pos/api/internal/service"
	"github.com/oshxona-pos/api/internal/ws"
	"go.uber.org/zap"
)

// OrderServicer defines the service methods order handlers need.
// Satisfied by *service.Service; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	AddItem(ctx context.Context, req service.AddItemRequest) (database.OrderItem, database.Order, error)
	UpdateItemQty(ctx context.Context, orderID, itemID uuid.UUID, qty int32, actor service.Actor) (database.OrderItem, database.Order, error)
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID, actor service.Actor) (database.Order, error)
	SetDiscount(ctx context.Context, orderID uuid.UUID, discountType, discountValue string, actor service.Actor) (database.Order, error)
	ReassignTable(ctx context.Context, orderID uuid.UUID, newTableID string, actor service.Actor) (database.Order, error)
	ChangeStatus(ctx context.Context, req service.ChangeStatusRequest) (database.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID, actor service.Actor) error
}

// OrderStore defines the database methods the order read endpoints
// need. Satisfied by *database.Queries.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
	ListOrderStatusLogsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusLog, error)
}

// Broadcaster pushes events to connected staff terminals.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	store  OrderStore
	hub    Broadcaster
	logger *zap.Logger
}

func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{svc: svc, store: store, hub: hub, logger: logger}
}

func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.ChangeStatus)
	r.Patch("/{id}/discount", h.SetDiscount)
	r.Patch("/{id}/table", h.ReassignTable)
	r.Post("/{id}/items", h.AddItem)
	r.Patch("/{id}/items/{itemID}", h.UpdateItemQty)
	r.Delete("/{id}/items/{itemID}", h.RemoveItem)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType     string                   `json:"order_type"`
	TableID       string                   `json:"table_id"`
	CustomerName  string                   `json:"customer_name"`
	CustomerPhone string                   `json:"customer_phone"`
	Notes         string                   `json:"notes"`
	DiscountType  string                   `json:"discount_type"`
	DiscountValue string                   `json:"discount_value"`
	Items         []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Qty        int32  `json:"qty"`
	Notes      string `json:"notes"`
}

type addItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Qty        int32  `json:"qty"`
	Notes      string `json:"notes"`
}

type updateItemQtyRequest struct {
	Qty int32 `json:"qty"`
}

type setDiscountRequest struct {
	DiscountType  string `json:"discount_type"`
	DiscountValue string `json:"discount_value"`
}

type reassignTableRequest struct {
	TableID string `json:"table_id"`
}

type changeStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrderCode      string              `json:"order_code"`
	OrderType      string              `json:"order_type"`
	TableID        *string             `json:"table_id"`
	CustomerName   *string             `json:"customer_name"`
	CustomerPhone  *string             `json:"customer_phone"`
	CreatedBy      uuid.UUID           `json:"created_by"`
	Status         string              `json:"status"`
	Notes          *string             `json:"notes"`
	DiscountType   string              `json:"discount_type"`
	DiscountValue  string              `json:"discount_value"`
	Subtotal       string              `json:"subtotal"`
	DiscountAmount string              `json:"discount_amount"`
	Total          string              `json:"total"`
	PaidTotal      string              `json:"paid_total"`
	DueAmount      string              `json:"due_amount"`
	IsClosed       bool                `json:"is_closed"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	ItemName   string    `json:"item_name"`
	UnitPrice  string    `json:"unit_price"`
	Qty        int32     `json:"qty"`
	Notes      *string   `json:"notes"`
	LineTotal  string    `json:"line_total"`
}

type statusLogResponse struct {
	ID         uuid.UUID `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedBy  uuid.UUID `json:"changed_by"`
	Comment    *string   `json:"comment"`
	ChangedAt  time.Time `json:"changed_at"`
}

// orderDetailResponse extends orderResponse with payments and the
// status audit trail for the GET detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Payments   []paymentResponse   `json:"payments"`
	StatusLogs []statusLogResponse `json:"status_logs"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OrderCode:      o.OrderCode,
		OrderType:      o.OrderType,
		CustomerName:   textPtr(o.CustomerName),
		CustomerPhone:  textPtr(o.CustomerPhone),
		CreatedBy:      o.CreatedBy,
		Status:         o.Status,
		Notes:          textPtr(o.Notes),
		DiscountType:   o.DiscountType,
		DiscountValue:  numericToString(o.DiscountValue),
		Subtotal:       numericToString(o.Subtotal),
		DiscountAmount: numericToString(o.DiscountAmount),
		Total:          numericToString(o.Total),
		PaidTotal:      numericToString(o.PaidTotal),
		DueAmount:      numericToString(o.DueAmount),
		IsClosed:       o.IsClosed,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.TableID.Valid {
		s := uuid.UUID(o.TableID.Bytes).String()
		resp.TableID = &s
	}
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:         it.ID,
		MenuItemID: it.MenuItemID,
		ItemName:   it.ItemName,
		UnitPrice:  numericToString(it.UnitPrice),
		Qty:        it.Qty,
		Notes:      textPtr(it.Notes),
		LineTotal:  numericToString(it.LineTotal),
	}
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			MenuItemID: it.MenuItemID,
			Qty:        it.Qty,
			Notes:      it.Notes,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		OrderType:     req.OrderType,
		TableID:       req.TableID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		Items:         items,
		Actor:         actor,
	})
	if err != nil {
		writeServiceError(w, h.logger, "create order", err)
		return
	}

	resp := toOrderResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, it := range result.Items {
		resp.Items[i] = toOrderItemResponse(it)
	}

	h.broadcastOrder(ws.EventOrderCreated, result.Order)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders. Waiters see only their own orders; other
// roles see everything.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("table_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid table_id")
			return
		}
		params.TableID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	if actor.Role == enum.RoleWaiter {
		params.CreatedBy = pgtype.UUID{Bytes: actor.ID, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		h.logger.Error("list orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /orders/{id}: the order with its items, payments,
// and status audit trail.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFromRequest(w, r); !ok {
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
		h.logger.Error("get order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("list order items", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("list payments", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logs, err := h.store.ListOrderStatusLogsByOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("list status logs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := orderDetailResponse{orderResponse: toOrderResponse(order)}
	resp.Items = make([]orderItemResponse, len(items))
	for i, it := range items {
		resp.Items[i] = toOrderItemResponse(it)
	}
	resp.Payments = make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp.Payments[i] = toPaymentResponse(p)
	}
	resp.StatusLogs = make([]statusLogResponse, len(logs))
	for i, l := range logs {
		resp.StatusLogs[i] = statusLogResponse{
			ID:         l.ID,
			FromStatus: l.FromStatus,
			ToStatus:   l.ToStatus,
			ChangedBy:  l.ChangedBy,
			Comment:    textPtr(l.Comment),
			ChangedAt:  l.ChangedAt,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ChangeStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	order, err := h.svc.ChangeStatus(r.Context(), service.ChangeStatusRequest{
		OrderID:  orderID,
		ToStatus: req.Status,
		Comment:  req.Comment,
		Actor:    actor,
	})
	if err != nil {
		writeServiceError(w, h.logger, "change status", err)
		return
	}

	h.broadcastOrder(ws.EventOrderStatusChanged, order)
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// AddItem handles POST /orders/{id}/items.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, order, err := h.svc.AddItem(r.Context(), service.AddItemRequest{
		OrderID:    orderID,
		MenuItemID: req.MenuItemID,
		Qty:        req.Qty,
		Notes:      req.Notes,
		Actor:      actor,
	})
	if err != nil {
		writeServiceError(w, h.logger, "add item", err)
		return
	}

	resp := toOrderResponse(order)
	resp.Items = []orderItemResponse{toOrderItemResponse(item)}
	writeJSON(w, http.StatusCreated, resp)
}

// UpdateItemQty handles PATCH /orders/{id}/items/{itemID}.
func (h *OrderHandler) UpdateItemQty(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req updateItemQtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, order, err := h.svc.UpdateItemQty(r.Context(), orderID, itemID, req.Qty, actor)
	if err != nil {
		writeServiceError(w, h.logger, "update item qty", err)
		return
	}

	resp := toOrderResponse(order)
	resp.Items = []orderItemResponse{toOrderItemResponse(item)}
	writeJSON(w, http.StatusOK, resp)
}

// RemoveItem handles DELETE /orders/{id}/items/{itemID}.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	order, err := h.svc.RemoveItem(r.Context(), orderID, itemID, actor)
	if err != nil {
		writeServiceError(w, h.logger, "remove item", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// SetDiscount handles PATCH /orders/{id}/discount.
func (h *OrderHandler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req setDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.SetDiscount(r.Context(), orderID, req.DiscountType, req.DiscountValue, actor)
	if err != nil {
		writeServiceError(w, h.logger, "set discount", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// ReassignTable handles PATCH /orders/{id}/table.
func (h *OrderHandler) ReassignTable(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req reassignTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.ReassignTable(r.Context(), orderID, req.TableID, actor)
	if err != nil {
		writeServiceError(w, h.logger, "reassign table", err)
		return
	}

	h.broadcastTable(order)
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Delete handles DELETE /orders/{id}. Manager only; enforced in the
// service layer.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), orderID, actor); err != nil {
		writeServiceError(w, h.logger, "delete order", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Broadcast helpers ---

// broadcastOrder pushes the order event plus a table occupancy event
// when the order holds a table.
func (h *OrderHandler) broadcastOrder(eventType string, order database.Order) {
	if h.hub == nil {
		return
	}
	h.hub.Broadcast(ws.NewEvent(eventType, toOrderResponse(order)))
	h.broadcastTable(order)
}

func (h *OrderHandler) broadcastTable(order database.Order) {
	if h.hub == nil || !order.TableID.Valid {
		return
	}
	status := enum.TableStatusOccupied
	if enum.IsTerminalStatus(order.Status) {
		status = enum.TableStatusFree
	}
	h.hub.Broadcast(ws.NewEvent(ws.EventTableUpdated, map[string]string{
		"table_id": uuid.UUID(order.TableID.Bytes).String(),
		"status":   status,
	}))
}
