package httpapi

import (
	"net/http"

	"aroma-order-service/internal/config"
	"aroma-order-service/internal/http/handlers"
	"aroma-order-service/internal/middleware"
	"aroma-order-service/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter wires every route. wsServer may be nil, in which case the
// websocket endpoints are not mounted.
func NewRouter(h *handlers.Handler, wsServer *ws.Server, logger *zap.Logger, cfg config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger, middleware.NewLatencyTracker()))
	r.Use(cors.Handler(corsOptions(cfg)))

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.APIHealth)
		r.Get("/menu", h.PublicMenu)
		r.Get("/settings", h.PublicSettings)
		r.Get("/analytics/top-items", h.TopItems)
		r.Post("/payments/stripe-intent", h.StripeIntent)

		r.Post("/orders", h.OrderCreate)
		r.Get("/orders/{id}", h.OrderDetail)
		r.Post("/orders/{id}/confirm", h.OrderConfirm)
		r.Post("/orders/{id}/complete", h.OrderComplete)
		r.Post("/orders/{id}/cancel", h.OrderCancel)
		if wsServer != nil {
			r.Get("/orders/{id}/ws", wsServer.OrderWS)
		}
	})

	r.Get("/admin/login", h.AdminLogin)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminUser, cfg.AdminPass))

		r.Get("/", h.AdminDashboard)

		r.Get("/items", h.AdminItems)
		r.Post("/items/create", h.AdminItemCreate)
		r.Post("/items/{id}/update", h.AdminItemUpdate)
		r.Post("/items/{id}/delete", h.AdminItemDelete)
		r.Post("/items/{id}/image", h.AdminItemImage)

		r.Get("/categories", h.AdminCategories)
		r.Post("/categories", h.AdminCategoryCreate)
		r.Post("/categories/{id}/update", h.AdminCategoryUpdate)
		r.Post("/categories/{id}/delete", h.AdminCategoryDelete)

		r.Get("/settings", h.AdminSettingsGet)
		r.Post("/settings", h.AdminSettingsUpdate)

		r.Get("/tables", h.AdminTables)
		r.Post("/tables/create", h.AdminTableCreate)
		r.Get("/tables/{id}/qr.png", h.AdminTableQR)

		r.Get("/orders", h.AdminOrders)
		r.Post("/orders/{id}/status", h.AdminOrderStatus)
		r.Get("/orders/{id}/receipt", h.AdminOrderReceipt)

		if wsServer != nil {
			r.Get("/ws/orders", wsServer.AdminOrdersWS)
		}
	})

	return r
}

func corsOptions(cfg config.Config) cors.Options {
	options := cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
			"X-Request-Id",
			"Cache-Control",
		},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}
	if cfg.IsDevelopment() {
		options.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
		options.AllowCredentials = true
		return options
	}
	options.AllowedOrigins = cfg.CorsAllowedOrigins
	return options
}
