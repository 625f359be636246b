package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oshxona-pos/api/internal/config"
	"github.com/oshxona-pos/api/internal/database"
	"github.com/oshxona-pos/api/internal/handler"
	mw "github.com/oshxona-pos/api/internal/middleware"
	"github.com/oshxona-pos/api/internal/service"
	"github.com/oshxona-pos/api/internal/ws"
	"go.uber.org/zap"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, logger)
	r.Route("/auth", func(r chi.Router) {
		authHandler.RegisterPublicRoutes(r)
	})

	// WebSocket route (authenticates internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/auth/me", func(r chi.Router) {
			r.Get("/", authHandler.Me)
		})

		tableHandler := handler.NewTableHandler(queries, logger)
		r.Route("/tables", tableHandler.RegisterRoutes)

		menuHandler := handler.NewMenuHandler(queries, logger)
		r.Route("/menu", menuHandler.RegisterRoutes)

		newStore := func(db database.DBTX) service.Store {
			return database.New(db)
		}
		svc := service.New(pool, newStore, logger)

		orderHandler := handler.NewOrderHandler(svc, queries, hub, logger)
		paymentHandler := handler.NewPaymentHandler(svc, queries, hub, logger)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)
			r.Route("/{id}/payments", paymentHandler.RegisterOrderRoutes)
		})
		r.Route("/payments", paymentHandler.RegisterRoutes)
	})

	return r
}
