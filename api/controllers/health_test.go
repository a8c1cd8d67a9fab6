package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg)(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if resp.Header().Get("X-Storefront-Env") != "dev" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	up := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{"database": up, "redis": up})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{"database": up, "redis": down})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"dependency":"redis"`) {
		t.Fatalf("expected failing dependency in details, got %s", resp.Body.String())
	}
}
