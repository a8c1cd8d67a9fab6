package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/app"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type memoryRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}}
}

func (m *memoryRedis) Ping(context.Context) error { return nil }

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

type harness struct {
	handler http.Handler
	db      *gorm.DB
	cfg     *config.Config
	poster  *models.Product
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	cfg := &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "storefront"},
		Checkout: config.CheckoutConfig{
			Currency:       "IRR",
			InvoiceTitle:   "Storefront order",
			InvoiceDueDays: 7,
			StockPolicy:    config.StockPolicyCreditLine,
		},
	}
	registry := prometheus.NewRegistry()
	dbClient := pkgdb.NewFromConn(conn)

	services, err := app.NewServices(app.Params{
		Config:   cfg.Checkout,
		DB:       dbClient,
		Registry: registry,
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)

	poster := &models.Product{Name: "Poster", Slug: "poster", Type: enums.ProductTypePhysical, Price: decimal.NewFromInt(25000), IsPublished: true}
	dbtest.Seed(t, conn, poster, &models.Setting{Key: models.SettingKeyVATPercent, Value: "9"})

	handler := NewRouter(cfg, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), dbClient, newMemoryRedis(), registry,
		services.Cart, services.Checkout, services.Invoices, services.Notifications)
	return &harness{handler: handler, db: conn, cfg: cfg, poster: poster}
}

func (h *harness) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, pkgAuth.AccessTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    h.cfg.JWT.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(h.cfg.JWT.Secret))
	require.NoError(t, err)
	return signed
}

func (h *harness) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/live", "", nil).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/ready", "", nil).Code)

	resp := h.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "checkout_success_total")
}

func TestGuestCartThenSignedInCheckout(t *testing.T) {
	h := newHarness(t)

	add := h.do(http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+h.poster.ID.String()+`","quantity":2}`, nil)
	require.Equal(t, http.StatusOK, add.Code, add.Body.String())
	anonymousID := add.Header().Get("X-Anonymous-Id")
	require.NotEmpty(t, anonymousID)

	get := h.do(http.MethodGet, "/api/v1/cart", "", map[string]string{"X-Anonymous-Id": anonymousID})
	require.Equal(t, http.StatusOK, get.Code)
	var cartBody struct {
		Data struct {
			Subtotal string `json:"subtotal"`
			Items    []struct {
				Quantity int `json:"quantity"`
			} `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &cartBody))
	require.Len(t, cartBody.Data.Items, 1)
	require.Equal(t, 2, cartBody.Data.Items[0].Quantity)
	require.Equal(t, "50000", cartBody.Data.Subtotal)

	guest := h.do(http.MethodPost, "/api/v1/checkout", "", map[string]string{
		"X-Anonymous-Id":  anonymousID,
		"Idempotency-Key": "guest-attempt",
	})
	require.Equal(t, http.StatusUnauthorized, guest.Code)

	headers := map[string]string{
		"Authorization":   "Bearer " + h.token(t, uuid.New()),
		"X-Anonymous-Id":  anonymousID,
		"Idempotency-Key": "checkout-1",
	}
	first := h.do(http.MethodPost, "/api/v1/checkout", "", headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	var result struct {
		Data struct {
			InvoiceID uuid.UUID `json:"invoice_id"`
			Tax       string    `json:"tax"`
			Total     string    `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &result))
	require.Equal(t, "4500", result.Data.Tax)
	require.Equal(t, "54500", result.Data.Total)

	replay := h.do(http.MethodPost, "/api/v1/checkout", "", headers)
	require.Equal(t, http.StatusCreated, replay.Code)
	require.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	require.JSONEq(t, first.Body.String(), replay.Body.String())

	var invoices int64
	require.NoError(t, h.db.Model(&models.Invoice{}).Count(&invoices).Error)
	require.EqualValues(t, 1, invoices)

	invoice := h.do(http.MethodGet, "/api/v1/invoices/"+result.Data.InvoiceID.String(), "", headers)
	require.Equal(t, http.StatusOK, invoice.Code, invoice.Body.String())

	other := h.do(http.MethodGet, "/api/v1/invoices/"+result.Data.InvoiceID.String(), "", map[string]string{
		"Authorization": "Bearer " + h.token(t, uuid.New()),
	})
	require.Equal(t, http.StatusNotFound, other.Code)

	empty := h.do(http.MethodGet, "/api/v1/cart", "", map[string]string{"X-Anonymous-Id": anonymousID})
	require.Equal(t, http.StatusOK, empty.Code)
	require.NotContains(t, empty.Body.String(), `"id"`)
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodPost, "/api/v1/checkout", "", map[string]string{
		"Authorization": "Bearer " + h.token(t, uuid.New()),
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "Idempotency-Key")
}

func TestNotificationsRequireUser(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/notifications", "", nil).Code)

	resp := h.do(http.MethodGet, "/api/v1/notifications", "", map[string]string{
		"Authorization": "Bearer " + h.token(t, uuid.New()),
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"items":[]`)
}

func TestInvalidBearerIsRejectedEvenOnGuestRoutes(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodGet, "/api/v1/cart", "", map[string]string{"Authorization": "Bearer junk"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}
