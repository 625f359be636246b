package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oshxona-pos/api/internal/auth"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/enum"
	"github.com/oshxona-pos/api/internal/money"
	"github.com/oshxona-pos/api/internal/service"
	"github.com/oshxona-pos/api/internal/ws"
	"github.com/shopspring/decimal"
)

const testJWTSecret = "test-secret-for-handlers"

// --- Claims helpers ---

func managerClaims() *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Username: "manager", Role: "MANAGER"}
}

func waiterClaims() *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Username: "waiter", Role: "WAITER"}
}

// --- Request helpers ---

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.Username, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeObject(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeArray(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// --- Test data ---

func numeric(s string) pgtype.Numeric {
	return money.ToNumeric(decimal.RequireFromString(s))
}

func sampleOrder(status string) database.Order {
	return database.Order{
		ID:             uuid.New(),
		OrderCode:      "A1B2C3D4E5F6",
		OrderType:      enum.OrderTypeDineIn,
		TableID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
		CreatedBy:      uuid.New(),
		Status:         status,
		DiscountType:   enum.DiscountTypeNone,
		DiscountValue:  numeric("0"),
		Subtotal:       numeric("5.00"),
		DiscountAmount: numeric("0"),
		Total:          numeric("5.00"),
		PaidTotal:      numeric("0"),
		DueAmount:      numeric("5.00"),
		IsClosed:       enum.IsTerminalStatus(status),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

// --- Mock order service ---

type mockOrderService struct {
	createFn        func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	addItemFn       func(ctx context.Context, req service.AddItemRequest) (database.OrderItem, database.Order, error)
	updateItemQtyFn func(ctx context.Context, orderID, itemID uuid.UUID, qty int32, actor service.Actor) (database.OrderItem, database.Order, error)
	removeItemFn    func(ctx context.Context, orderID, itemID uuid.UUID, actor service.Actor) (database.Order, error)
	setDiscountFn   func(ctx context.Context, orderID uuid.UUID, discountType, discountValue string, actor service.Actor) (database.Order, error)
	reassignTableFn func(ctx context.Context, orderID uuid.UUID, newTableID string, actor service.Actor) (database.Order, error)
	changeStatusFn  func(ctx context.Context, req service.ChangeStatusRequest) (database.Order, error)
	deleteOrderFn   func(ctx context.Context, orderID uuid.UUID, actor service.Actor) error
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	return m.createFn(ctx, req)
}

func (m *mockOrderService) AddItem(ctx context.Context, req service.AddItemRequest) (database.OrderItem, database.Order, error) {
	return m.addItemFn(ctx, req)
}

func (m *mockOrderService) UpdateItemQty(ctx context.Context, orderID, itemID uuid.UUID, qty int32, actor service.Actor) (database.OrderItem, database.Order, error) {
	return m.updateItemQtyFn(ctx, orderID, itemID, qty, actor)
}

func (m *mockOrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID, actor service.Actor) (database.Order, error) {
	return m.removeItemFn(ctx, orderID, itemID, actor)
}

func (m *mockOrderService) SetDiscount(ctx context.Context, orderID uuid.UUID, discountType, discountValue string, actor service.Actor) (database.Order, error) {
	return m.setDiscountFn(ctx, orderID, discountType, discountValue, actor)
}

func (m *mockOrderService) ReassignTable(ctx context.Context, orderID uuid.UUID, newTableID string, actor service.Actor) (database.Order, error) {
	return m.reassignTableFn(ctx, orderID, newTableID, actor)
}

func (m *mockOrderService) ChangeStatus(ctx context.Context, req service.ChangeStatusRequest) (database.Order, error) {
	return m.changeStatusFn(ctx, req)
}

func (m *mockOrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID, actor service.Actor) error {
	return m.deleteOrderFn(ctx, orderID, actor)
}

// --- Recording broadcaster ---

type recordingHub struct {
	events []ws.Event
}

func (r *recordingHub) Broadcast(event ws.Event) {
	r.events = append(r.events, event)
}

func (r *recordingHub) eventTypes() []string {
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
