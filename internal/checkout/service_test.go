package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/addresses"
	"github.com/angelmondragon/storefront-backend/internal/audit"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/internal/invoices"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

var checkoutNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	carts    cart.Service
	invoices invoices.Service
	deps     Deps
	registry *prometheus.Registry
	seller   *models.Seller
	poster   *models.Product
	course   *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	clock := func() time.Time { return checkoutNow }

	engine := discounts.NewEngine(discounts.NewRepository(db), clock)
	cartRepo := cart.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	txRunner := pkgdb.NewFromConn(db)

	carts, err := cart.NewService(cartRepo, catalogRepo, engine, txRunner, cart.StockPolicyCreditLine, logger.Nop())
	require.NoError(t, err)
	invoiceSvc, err := invoices.NewService(invoices.NewRepository(db))
	require.NoError(t, err)
	vat, err := settings.NewProvider(db, nil, 0, decimal.Zero, nil)
	require.NoError(t, err)
	notifier, err := notifications.NewSellerNotifier(notifications.NewRepository(db), catalogRepo)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	f := &fixture{
		db:       db,
		carts:    carts,
		invoices: invoiceSvc,
		registry: registry,
		deps: Deps{
			Tx:        txRunner,
			Carts:     cartRepo,
			Detacher:  carts,
			Discounts: engine,
			VAT:       vat,
			Addresses: addresses.NewRepository(db),
			Invoices:  invoiceSvc,
			Notifier:  notifier,
			Metrics:   metrics.NewCheckoutMetrics(registry),
			Logger:    logger.Nop(),
			Now:       clock,
		},
	}

	f.seller = &models.Seller{UserID: uuid.New(), DisplayName: "Academy", IsActive: true}
	dbtest.Seed(t, db, f.seller)
	f.poster = &models.Product{Name: "Poster", Slug: "poster", Type: enums.ProductTypePhysical, Price: decimal.NewFromInt(25000), IsPublished: true}
	f.course = &models.Product{Name: "Go course", Slug: "go-course", Type: enums.ProductTypeDigital, Price: decimal.NewFromInt(10000), IsPublished: true, SellerID: &f.seller.ID}
	dbtest.Seed(t, db, f.poster, f.course,
		&models.Setting{Key: models.SettingKeyVATPercent, Value: "9"},
		&models.DiscountCode{Code: "TEN", Type: enums.DiscountTypePercentage, Value: decimal.NewFromInt(10), IsActive: true, UsageLimit: intPtr(5)},
	)
	return f
}

func intPtr(v int) *int {
	return &v
}

func (f *fixture) service(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(f.deps, Settings{Title: "Storefront order", Currency: "IRR", DueIn: 7 * 24 * time.Hour})
	require.NoError(t, err)
	return svc
}

func (f *fixture) fillCart(t *testing.T, owner cart.Owner, code string) *models.Cart {
	t.Helper()
	ctx := context.Background()
	actx := audit.NewContext(owner.UserID, "127.0.0.1", checkoutNow)
	_, err := f.carts.AddItem(ctx, owner, actx, cart.ItemInput{ProductID: f.poster.ID, Quantity: 2})
	require.NoError(t, err)
	c, err := f.carts.AddItem(ctx, owner, actx, cart.ItemInput{ProductID: f.course.ID, Quantity: 1})
	require.NoError(t, err)
	if code != "" {
		c, err = f.carts.ApplyDiscount(ctx, owner, actx, code)
		require.NoError(t, err)
	}
	return c
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

// counter reads a checkout counter, filtered by its reason label when set.
func (f *fixture) counter(t *testing.T, name, reason string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if reason == "" || hasLabel(metric.GetLabel(), "reason", reason) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, lp := range labels {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func (f *fixture) usedCount(t *testing.T, code string) int {
	t.Helper()
	var dc models.DiscountCode
	require.NoError(t, f.db.Where("code = ?", code).First(&dc).Error)
	return dc.UsedCount
}

func TestExecuteIssuesInvoiceAndDeletesCart(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	owner := cart.Owner{UserID: &userID}
	f.fillCart(t, owner, "TEN")

	address := &models.UserAddress{UserID: userID, RecipientName: "Sara", RecipientPhone: "0912", Province: "Tehran", City: "Tehran", PostalCode: "1", AddressLine: "Valiasr"}
	dbtest.Seed(t, f.db, address)

	result, err := f.service(t).Execute(context.Background(), Input{Owner: owner, ShippingAddressID: &address.ID})
	require.NoError(t, err)

	require.True(t, result.Subtotal.Equal(decimal.NewFromInt(60000)))
	require.True(t, result.Discount.Equal(decimal.NewFromInt(6000)))
	require.True(t, result.Tax.Equal(decimal.NewFromInt(4860)))
	require.True(t, result.Total.Equal(decimal.NewFromInt(58860)))

	invoice, err := f.invoices.Get(context.Background(), result.InvoiceID, userID)
	require.NoError(t, err)
	require.True(t, invoice.AdjustmentAmount.Equal(decimal.NewFromInt(-6000)))
	require.True(t, invoice.TotalAmount.Equal(result.Total))
	require.True(t, invoice.DueAt.Equal(checkoutNow.Add(7*24*time.Hour)))
	require.Len(t, invoice.Items, 2)
	require.Equal(t, enums.InvoiceItemTypePhysicalProduct, invoice.Items[0].Type)
	require.Equal(t, enums.InvoiceItemTypeCourse, invoice.Items[1].Type)
	require.NotNil(t, invoice.Shipping)
	require.Equal(t, "Valiasr", invoice.Shipping.AddressLine)

	require.Zero(t, f.count(t, &models.Cart{}))
	require.Zero(t, f.count(t, &models.CartItem{}))
	require.Equal(t, 1, f.usedCount(t, "TEN"))

	var notes []models.Notification
	require.NoError(t, f.db.Where("user_id = ?", f.seller.UserID).Find(&notes).Error)
	require.Len(t, notes, 1)
	require.Contains(t, notes[0].Message, "Go course")

	require.Equal(t, float64(1), f.counter(t, "checkout_success_total", ""))
}

func TestExecuteRequiresSignedInBuyer(t *testing.T) {
	f := newFixture(t)
	owner := cart.Owner{AnonymousID: "guest"}
	f.fillCart(t, owner, "")

	_, err := f.service(t).Execute(context.Background(), Input{Owner: owner})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	require.Zero(t, f.count(t, &models.Invoice{}))
}

func TestExecuteRejectsMissingOrEmptyCart(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	owner := cart.Owner{UserID: &userID}
	svc := f.service(t)

	_, err := svc.Execute(context.Background(), Input{Owner: owner})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	f.fillCart(t, owner, "")
	_, err = f.carts.Clear(context.Background(), owner, audit.Context{})
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), Input{Owner: owner})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Zero(t, f.count(t, &models.Invoice{}))
}

func TestExecuteUsesAnonymousCartOfSignedInBuyer(t *testing.T) {
	f := newFixture(t)
	anonymous := cart.Owner{AnonymousID: "guest-checkout"}
	f.fillCart(t, anonymous, "")

	userID := uuid.New()
	result, err := f.service(t).Execute(context.Background(), Input{Owner: cart.Owner{UserID: &userID, AnonymousID: "guest-checkout"}})
	require.NoError(t, err)
	require.True(t, result.Discount.IsZero())
	require.True(t, result.Tax.Equal(decimal.NewFromInt(5400)))
}

func TestExecuteDiscountRejectionStripsCode(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	owner := cart.Owner{UserID: &userID}
	f.fillCart(t, owner, "TEN")

	// Another buyer used the last slot after the code was applied.
	require.NoError(t, f.db.Model(&models.DiscountCode{}).Where("code = ?", "TEN").Update("used_count", 5).Error)

	_, err := f.service(t).Execute(context.Background(), Input{Owner: owner})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	typed := pkgerrors.As(err)
	require.Equal(t, "discount code usage limit reached", typed.Message())

	remaining, err := f.carts.Get(context.Background(), owner)
	require.NoError(t, err)
	require.NotNil(t, remaining)
	require.Nil(t, remaining.DiscountCode)
	require.Len(t, remaining.Items, 2)
	require.True(t, remaining.DiscountAmount.IsZero())

	require.Zero(t, f.count(t, &models.Invoice{}))
	require.Equal(t, 5, f.usedCount(t, "TEN"))
}

func TestExecuteUnknownCodeIsIgnored(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	owner := cart.Owner{UserID: &userID}
	c := f.fillCart(t, owner, "TEN")

	require.NoError(t, f.db.Where("code = ?", "TEN").Delete(&models.DiscountCode{}).Error)
	require.NotNil(t, c.DiscountCode)

	result, err := f.service(t).Execute(context.Background(), Input{Owner: owner})
	require.NoError(t, err)
	require.True(t, result.Discount.IsZero())
}

type failingInvoices struct{}

func (failingInvoices) Create(context.Context, *gorm.DB, invoices.CreateInput) (uuid.UUID, error) {
	return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("disk full"), "create invoice")
}

func (failingInvoices) Get(context.Context, uuid.UUID, uuid.UUID) (*models.Invoice, error) {
	return nil, nil
}

func TestExecuteInvoiceFailureRollsBackRedemption(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	owner := cart.Owner{UserID: &userID}
	f.fillCart(t, owner, "TEN")
	f.deps.Invoices = failingInvoices{}

	_, err := f.service(t).Execute(context.Background(), Input{Owner: owner})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	require.Zero(t, f.usedCount(t, "TEN"))
	remaining, err := f.carts.Get(context.Background(), owner)
	require.NoError(t, err)
	require.NotNil(t, remaining.DiscountCode, "code stays applied after an infrastructure failure")
	require.Len(t, remaining.Items, 2)
}

func TestExecuteIgnoresForeignShippingAddress(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	owner := cart.Owner{UserID: &userID}
	f.fillCart(t, owner, "")

	foreign := &models.UserAddress{UserID: uuid.New(), RecipientName: "Other", RecipientPhone: "1", Province: "P", City: "C", PostalCode: "2", AddressLine: "Elsewhere"}
	dbtest.Seed(t, f.db, foreign)

	result, err := f.service(t).Execute(context.Background(), Input{Owner: owner, ShippingAddressID: &foreign.ID})
	require.NoError(t, err)

	invoice, err := f.invoices.Get(context.Background(), result.InvoiceID, userID)
	require.NoError(t, err)
	require.Nil(t, invoice.Shipping)
}

type panickingNotifier struct{}

func (panickingNotifier) NotifySellers(context.Context, uuid.UUID, []notifications.SaleLine) error {
	panic("notification sink exploded")
}

func TestExecuteSurvivesNotifierPanic(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	owner := cart.Owner{UserID: &userID}
	f.fillCart(t, owner, "")
	f.deps.Notifier = panickingNotifier{}

	result, err := f.service(t).Execute(context.Background(), Input{Owner: owner})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, result.InvoiceID)
	require.Zero(t, f.count(t, &models.Cart{}))
}

type brokenVAT struct{}

func (brokenVAT) VATPercent(context.Context) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("settings unavailable")
}

func TestExecuteVATFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	owner := cart.Owner{UserID: &userID}
	f.fillCart(t, owner, "")
	f.deps.VAT = brokenVAT{}

	_, err := f.service(t).Execute(context.Background(), Input{Owner: owner})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.Equal(t, int64(1), f.count(t, &models.Cart{}))
	require.Equal(t, float64(1), f.counter(t, "checkout_failure_total", "dependency_error"))
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(Deps{}, Settings{Title: "t", Currency: "IRR"})
	require.Error(t, err)

	f := newFixture(t)
	_, err = NewService(f.deps, Settings{})
	require.Error(t, err)
}
