// Package app assembles the storefront services from their infrastructure.
package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/addresses"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/internal/invoices"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Services are the domain services the HTTP layer routes to.
type Services struct {
	Cart          cart.Service
	Checkout      checkout.Service
	Invoices      invoices.Service
	Notifications notifications.Service
}

// Params carries the infrastructure shared by every service. Cache may be
// nil, in which case settings are read from the database on every call.
type Params struct {
	Config   config.CheckoutConfig
	DB       *db.Client
	Cache    redis.CacheStore
	Registry prometheus.Registerer
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewServices(p Params) (*Services, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}

	conn := p.DB.DB()
	policy, err := cart.ParseStockPolicy(p.Config.StockPolicy)
	if err != nil {
		return nil, err
	}

	cartRepo := cart.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	engine := discounts.NewEngine(discounts.NewRepository(conn), p.Now)

	cartService, err := cart.NewService(cartRepo, catalogRepo, engine, p.DB, policy, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	invoiceService, err := invoices.NewService(invoices.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("invoice service: %w", err)
	}

	notificationRepo := notifications.NewRepository(conn)
	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		return nil, fmt.Errorf("notification service: %w", err)
	}
	notifier, err := notifications.NewSellerNotifier(notificationRepo, catalogRepo)
	if err != nil {
		return nil, fmt.Errorf("seller notifier: %w", err)
	}

	vat, err := settings.NewProvider(conn, p.Cache, p.Config.SettingsCacheTTL, p.Config.DefaultVATPercent, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("settings provider: %w", err)
	}

	checkoutService, err := checkout.NewService(checkout.Deps{
		Tx:        p.DB,
		Carts:     cartRepo,
		Detacher:  cartService,
		Discounts: engine,
		VAT:       vat,
		Addresses: addresses.NewRepository(conn),
		Invoices:  invoiceService,
		Notifier:  notifier,
		Metrics:   metrics.NewCheckoutMetrics(p.Registry),
		Logger:    p.Logger,
		Now:       p.Now,
	}, checkout.Settings{
		Title:    p.Config.InvoiceTitle,
		Currency: p.Config.Currency,
		DueIn:    p.Config.InvoiceDueIn(),
	})
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}

	return &Services{
		Cart:          cartService,
		Checkout:      checkoutService,
		Invoices:      invoiceService,
		Notifications: notificationService,
	}, nil
}
