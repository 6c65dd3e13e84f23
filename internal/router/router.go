package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kleen-pos/api/internal/config"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/enum"
	"github.com/kleen-pos/api/internal/handler"
	mw "github.com/kleen-pos/api/internal/middleware"
	"github.com/kleen-pos/api/internal/service"
	"github.com/kleen-pos/api/internal/ws"
	"github.com/sirupsen/logrus"
)

var staffRoles = []string{enum.UserRoleAdmin, enum.UserRoleKasir, enum.UserRoleKurir, enum.UserRoleProduksi}

// New creates a Chi router with all application routes wired up.
// Order lookups, the status page and payment endpoints are public; the
// rest of /api requires a token, and master data is admin-only.
func New(cfg *config.Config, queries *database.Queries, pool service.TxBeginner, hub *ws.Hub, invoicer handler.Invoicer) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Callback-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	caps := queries.Capabilities()
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.NewWithCapabilities(db, caps)
	}
	orderService := service.NewOrderService(pool, newOrderStore, handler.NewOrderNotifier(hub))

	// Customer-facing pages
	handler.NewStatusPageHandler(queries).RegisterRoutes(r)
	handler.NewLiveHandler(hub, queries).RegisterRoutes(r)

	r.Route("/api", func(r chi.Router) {
		handler.NewAuthHandler(queries, cfg.JWTSecret).RegisterRoutes(r)
		handler.NewPaymentHandler(queries, invoicer, orderService, cfg.PaymentCallbackToken, cfg.PublicStatusURL).RegisterRoutes(r)

		orderHandler := handler.NewOrderHandler(orderService, queries)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				r.Use(mw.RequireRole(staffRoles...))
				orderHandler.RegisterStaffRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			serviceHandler := handler.NewServiceHandler(queries)
			r.Route("/services", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(staffRoles...))
					r.Use(mw.RequireBranch)
					serviceHandler.RegisterRoutes(r)
				})
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(enum.UserRoleAdmin))
					serviceHandler.RegisterAdminRoutes(r)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))

				r.Route("/branches", handler.NewBranchHandler(queries).RegisterRoutes)
				r.Route("/employees", handler.NewEmployeeHandler(queries, caps).RegisterRoutes)
				r.Route("/customers", handler.NewCustomerHandler(queries, caps).RegisterRoutes)
				handler.NewStatsHandler(queries, nil).RegisterRoutes(r)
			})
		})
	})

	logrus.WithFields(logrus.Fields{
		"customer_type":   caps.CustomerType,
		"employee_pin":    caps.EmployeePin,
		"employee_active": caps.EmployeeActive,
	}).Info("router initialized")
	return r
}
