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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/enum"
	"github.com/oshxona-pos/api/internal/middleware"
	"github.com/oshxona-pos/api/internal/money"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MenuStore defines the database methods menu handlers need.
// Satisfied by *database.Queries.
type MenuStore interface {
	CreateCategory(ctx context.Context, name string, sortOrder int32) (database.Category, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	ListMenuItems(ctx context.Context, categoryID pgtype.UUID) ([]database.MenuItem, error)
}

// MenuHandler handles category and menu item endpoints.
type MenuHandler struct {
	store  MenuStore
	logger *zap.Logger
}

func NewMenuHandler(store MenuStore, logger *zap.Logger) *MenuHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MenuHandler{store: store, logger: logger}
}

func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/categories", h.ListCategories)
	r.Get("/items", h.ListItems)
	r.Get("/items/{id}", h.GetItem)
	r.With(middleware.RequireRole(enum.RoleManager)).Post("/categories", h.CreateCategory)
	r.With(middleware.RequireRole(enum.RoleManager)).Post("/items", h.CreateItem)
}

type createCategoryRequest struct {
	Name      string `json:"name"`
	SortOrder int32  `json:"sort_order"`
}

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SortOrder int32     `json:"sort_order"`
	IsActive  bool      `json:"is_active"`
}

type createMenuItemRequest struct {
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	Price           string `json:"price"`
	Description     string `json:"description"`
	PrepTimeMinutes int32  `json:"prep_time_minutes"`
}

type menuItemResponse struct {
	ID              uuid.UUID `json:"id"`
	CategoryID      uuid.UUID `json:"category_id"`
	Name            string    `json:"name"`
	Price           string    `json:"price"`
	Description     *string   `json:"description"`
	IsAvailable     bool      `json:"is_available"`
	PrepTimeMinutes int32     `json:"prep_time_minutes"`
	CreatedAt       time.Time `json:"created_at"`
}

func toMenuItemResponse(mi database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:              mi.ID,
		CategoryID:      mi.CategoryID,
		Name:            mi.Name,
		Price:           numericToString(mi.Price),
		Description:     textPtr(mi.Description),
		IsAvailable:     mi.IsAvailable,
		PrepTimeMinutes: mi.PrepTimeMinutes,
		CreatedAt:       mi.CreatedAt,
	}
}

// CreateCategory handles POST /menu/categories. Manager only.
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	category, err := h.store.CreateCategory(r.Context(), req.Name, req.SortOrder)
	if err != nil {
		h.logger.Error("create category", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, categoryResponse{
		ID:        category.ID,
		Name:      category.Name,
		SortOrder: category.SortOrder,
		IsActive:  category.IsActive,
	})
}

// ListCategories handles GET /menu/categories.
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder, IsActive: c.IsActive}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateItem handles POST /menu/items. Manager only.
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category_id")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must be a non-negative amount")
		return
	}

	var description pgtype.Text
	if req.Description != "" {
		description = pgtype.Text{String: req.Description, Valid: true}
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		CategoryID:      categoryID,
		Name:            req.Name,
		Price:           money.ToNumeric(price),
		Description:     description,
		PrepTimeMinutes: req.PrepTimeMinutes,
	})
	if err != nil {
		h.logger.Error("create menu item", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// ListItems handles GET /menu/items with an optional category filter.
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	var categoryID pgtype.UUID
	if s := r.URL.Query().Get("category_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		categoryID = pgtype.UUID{Bytes: id, Valid: true}
	}

	items, err := h.store.ListMenuItems(r.Context(), categoryID)
	if err != nil {
		h.logger.Error("list menu items", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, mi := range items {
		resp[i] = toMenuItemResponse(mi)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetItem handles GET /menu/items/{id}.
func (h *MenuHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		h.logger.Error("get menu item", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}
