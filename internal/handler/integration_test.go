//go:build integration

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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oshxona-pos/api/internal/config"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/router"
	"github.com/oshxona-pos/api/internal/ws"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the full order lifecycle against a real
// PostgreSQL database: login, table and menu setup, order creation,
// kitchen status walk, split payment, and auto-closure.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Env:         "test",
		Port:        "8081",
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
	}
	queries := database.New(pool)
	hub := ws.NewHub(zap.NewNop())
	// Hub goroutine leaks on test exit; acceptable here, the Hub has no
	// shutdown mechanism.
	go hub.Run()

	r := router.New(cfg, queries, pool, hub, zap.NewNop())

	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Bootstrap staff accounts (manual DB insert, no signup endpoint) ---
	seedStaffUser(t, ctx, pool, "manager", "Dilshod Karimov", "MANAGER")
	seedStaffUser(t, ctx, pool, "waiter", "Aziza Yusupova", "WAITER")

	managerToken := loginUser(t, server, "manager", "password123")
	waiterToken := loginUser(t, server, "waiter", "password123")

	// --- 2. Manager sets up a table and the menu ---
	tableResp := httpPostJSON(t, server, "/tables", map[string]interface{}{"number": 1}, managerToken)
	tableID := tableResp["id"].(string)
	if tableResp["status"].(string) != "FREE" {
		t.Fatalf("new table status: got %s, want FREE", tableResp["status"])
	}

	categoryResp := httpPostJSON(t, server, "/menu/categories", map[string]interface{}{
		"name":       "Hot Dishes",
		"sort_order": 1,
	}, managerToken)
	categoryID := categoryResp["id"].(string)

	plovResp := httpPostJSON(t, server, "/menu/items", map[string]interface{}{
		"category_id": categoryID,
		"name":        "Plov",
		"price":       "35000.00",
	}, managerToken)
	plovID := plovResp["id"].(string)

	teaResp := httpPostJSON(t, server, "/menu/items", map[string]interface{}{
		"category_id": categoryID,
		"name":        "Green Tea",
		"price":       "5000.00",
	}, managerToken)
	teaID := teaResp["id"].(string)

	// --- 3. Waiter opens a dine-in order ---
	orderResp := httpPostJSON(t, server, "/orders", map[string]interface{}{
		"order_type": "DINE_IN",
		"table_id":   tableID,
		"items": []map[string]interface{}{
			{"menu_item_id": plovID, "qty": 2},
			{"menu_item_id": teaID, "qty": 1},
		},
	}, waiterToken)
	orderID := orderResp["id"].(string)

	// 35000 * 2 + 5000 = 75000
	if got := orderResp["subtotal"].(string); got != "75000.00" {
		t.Fatalf("subtotal: got %s, want 75000.00", got)
	}
	if got := orderResp["due_amount"].(string); got != "75000.00" {
		t.Fatalf("due_amount: got %s, want 75000.00", got)
	}
	if code := orderResp["order_code"].(string); len(code) != 12 {
		t.Fatalf("order_code: got %q, want 12 characters", code)
	}

	tableAfterOpen := httpGetJSON(t, server, "/tables/"+tableID, waiterToken)
	if tableAfterOpen["status"].(string) != "OCCUPIED" {
		t.Fatalf("table after order open: got %s, want OCCUPIED", tableAfterOpen["status"])
	}

	// --- 4. Kitchen walk: NEW -> COOKING -> READY -> SERVED ---
	for _, status := range []string{"COOKING", "READY", "SERVED"} {
		resp := httpPatchJSON(t, server, "/orders/"+orderID+"/status",
			map[string]interface{}{"status": status}, managerToken)
		if resp["status"].(string) != status {
			t.Fatalf("status walk: got %s, want %s", resp["status"], status)
		}
	}

	// --- 5. Split payment: partial CASH keeps the order open ---
	partialResp := httpPostJSON(t, server, "/orders/"+orderID+"/payments", map[string]interface{}{
		"method": "CASH",
		"amount": "50000.00",
	}, waiterToken)
	partialOrder := partialResp["order"].(map[string]interface{})
	if partialOrder["status"].(string) != "SERVED" {
		t.Fatalf("order after partial payment: got %s, want SERVED", partialOrder["status"])
	}
	if got := partialOrder["due_amount"].(string); got != "25000.00" {
		t.Fatalf("due after partial payment: got %s, want 25000.00", got)
	}

	// --- 6. Remaining CARD payment auto-closes the order ---
	finalResp := httpPostJSON(t, server, "/orders/"+orderID+"/payments", map[string]interface{}{
		"method": "CARD",
		"amount": "25000.00",
	}, waiterToken)
	finalOrder := finalResp["order"].(map[string]interface{})
	if finalOrder["status"].(string) != "PAID" {
		t.Fatalf("order after full payment: got %s, want PAID", finalOrder["status"])
	}
	if got := finalOrder["due_amount"].(string); got != "0.00" {
		t.Fatalf("due after full payment: got %s, want 0.00", got)
	}
	if finalOrder["is_closed"].(bool) != true {
		t.Fatalf("order after full payment is not closed")
	}

	// --- 7. Closure frees the table and the audit trail is complete ---
	tableAfterClose := httpGetJSON(t, server, "/tables/"+tableID, waiterToken)
	if tableAfterClose["status"].(string) != "FREE" {
		t.Fatalf("table after closure: got %s, want FREE", tableAfterClose["status"])
	}

	detail := httpGetJSON(t, server, "/orders/"+orderID, managerToken)
	logs := detail["status_logs"].([]interface{})
	// NEW->COOKING, COOKING->READY, READY->SERVED, SERVED->PAID
	if len(logs) != 4 {
		t.Fatalf("status logs: got %d, want 4", len(logs))
	}
	payments := detail["payments"].([]interface{})
	if len(payments) != 2 {
		t.Fatalf("payments: got %d, want 2", len(payments))
	}

	t.Logf("Integration test passed: container=%s, table=%s, order=%s",
		pgContainer.GetContainerID(), tableID, orderID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func seedStaffUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, username, fullName, role string) uuid.UUID {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, full_name, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		username, string(hashed), fullName, role,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create %s user: %v", role, err)
	}
	return id
}

func loginUser(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()

	resp := httpPostJSON(t, server, "/auth/login", map[string]interface{}{
		"username": username,
		"password": password,
	}, "")
	token, ok := resp["token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no token in response: %+v", resp)
	}
	return token
}

// --- HTTP helpers ---

func httpDoJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("%s %s: status %d, body: %v", method, path, resp.StatusCode, errResp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	return httpDoJSON(t, server, "POST", path, body, token)
}

func httpPatchJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	return httpDoJSON(t, server, "PATCH", path, body, token)
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string, token string) map[string]interface{} {
	t.Helper()
	return httpDoJSON(t, server, "GET", path, nil, token)
}
