package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/tapeo-pos/server/internal/auth"
	"github.com/tapeo-pos/server/internal/handler"
	"github.com/tapeo-pos/server/internal/invoice"
	"github.com/tapeo-pos/server/internal/notify"
	"github.com/tapeo-pos/server/internal/order"
	"github.com/tapeo-pos/server/internal/product"
	"github.com/tapeo-pos/server/internal/sales"
	"github.com/tapeo-pos/server/internal/scan"
	"github.com/tapeo-pos/server/internal/settings"
)

// NewRouter wires repositories, services and handlers around a shared
// connection pool. Everything except order creation, the availability
// check, login and health sits behind the auth middleware.
func NewRouter(pool *pgxpool.Pool, hub *notify.Hub, scanner *scan.Service, authSvc *auth.Service) *chi.Mux {
	productRepo := product.NewRepository(pool)

	settingsSvc := settings.NewService(settings.NewRepository(pool), hub)
	productSvc := product.NewService(productRepo, hub)
	salesSvc := sales.NewService(sales.NewRepository(pool), hub)
	invoiceSvc := invoice.NewService(invoice.NewRepository(pool), hub)
	orderSvc := order.NewService(order.NewRepository(pool), productRepo, settingsSvc, salesSvc, hub)

	orderHandler := handler.NewOrderHandler(orderSvc)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Customer-facing surface: no credentials required.
	orderHandler.RegisterPublicRoutes(r)
	handler.NewAvailabilityHandler(settingsSvc).RegisterRoutes(r)
	handler.NewAuthHandler(authSvc).RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(authSvc.Middleware)

		orderHandler.RegisterRoutes(r)
		handler.NewProductHandler(productSvc).RegisterRoutes(r)
		handler.NewSalesHandler(salesSvc, scanner).RegisterRoutes(r)
		handler.NewInvoiceHandler(invoiceSvc, scanner).RegisterRoutes(r)
		handler.NewSettingsHandler(settingsSvc).RegisterRoutes(r)
		handler.NewNotificationHandler(hub).RegisterRoutes(r)
	})

	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
