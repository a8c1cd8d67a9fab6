package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type itemPayload struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"`+id.String()+`","quantity":2}`))

	var payload itemPayload
	if err := DecodeJSONBody(req, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.ProductID != id || payload.Quantity != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0}`))

	var payload itemPayload
	err := DecodeJSONBody(req, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["product_id"] != "is required" {
		t.Fatalf("unexpected product_id detail %q", details["product_id"])
	}
	if _, ok := details["quantity"]; !ok {
		t.Fatalf("expected quantity detail, got %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"price":"0"}`))

	var payload itemPayload
	if err := DecodeJSONBody(req, &payload); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryHelpers(t *testing.T) {
	variant := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&unread_only=true&variant_id="+variant.String(), nil)

	limit, err := ParseQueryInt(req, "limit", 20, 1, 100)
	if err != nil || limit != 5 {
		t.Fatalf("unexpected limit %d err %v", limit, err)
	}
	unread, err := ParseQueryBool(req, "unread_only")
	if err != nil || !unread {
		t.Fatalf("unexpected unread %v err %v", unread, err)
	}
	got, err := ParseQueryUUID(req, "variant_id")
	if err != nil || got == nil || *got != variant {
		t.Fatalf("unexpected variant %v err %v", got, err)
	}
	missing, err := ParseQueryUUID(req, "offer_id")
	if err != nil || missing != nil {
		t.Fatalf("expected nil offer, got %v err %v", missing, err)
	}

	bad := httptest.NewRequest(http.MethodGet, "/?limit=500&unread_only=maybe&offer_id=x", nil)
	if _, err := ParseQueryInt(bad, "limit", 20, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
	if _, err := ParseQueryBool(bad, "unread_only"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected bool error, got %v", err)
	}
	if _, err := ParseQueryUUID(bad, "offer_id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected uuid error, got %v", err)
	}
}

func TestParseURLParamUUID(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("productId", id.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseURLParamUUID(req, "productId")
	if err != nil || got != id {
		t.Fatalf("unexpected id %s err %v", got, err)
	}
	if _, err := ParseURLParamUUID(req, "invoiceId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeOptionalJSONBodyAcceptsEmptyBody(t *testing.T) {
	var payload struct {
		AddressID *uuid.UUID `json:"shipping_address_id"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := DecodeOptionalJSONBody(req, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.AddressID != nil {
		t.Fatalf("expected nil address")
	}

	id := uuid.New()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"shipping_address_id":"`+id.String()+`"}`))
	if err := DecodeOptionalJSONBody(req, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.AddressID == nil || *payload.AddressID != id {
		t.Fatalf("unexpected address %v", payload.AddressID)
	}
}
