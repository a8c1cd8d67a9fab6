package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/invoices"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// redisStore is the redis surface the router needs: health pings and
// idempotency records.
type redisStore interface {
	redis.Pinger
	redis.IdempotencyStore
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	gatherer prometheus.Gatherer,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	invoiceService invoices.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		chimiddleware.RealIP,
		middleware.ClientIP(),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["database"] = dbP
	}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Put("/items/{productId}", controllers.CartSetItemQuantity(cartService, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(cartService, logg))
			r.Post("/discount", controllers.CartApplyDiscount(cartService, logg))
			r.Delete("/discount", controllers.CartRemoveDiscount(cartService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))
			r.Post("/checkout", controllers.Checkout(checkoutService, logg))
			r.Get("/invoices/{invoiceId}", controllers.GetInvoice(invoiceService, logg))
			r.Get("/notifications", controllers.ListNotifications(notificationsService, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})
	})

	return r
}
