package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartGet returns the caller's cart, or an empty cart when none exists yet.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		record, err := svc.Get(r.Context(), ownerFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, http.StatusOK, record)
	}
}

// CartAddItem adds quantity to a line, creating the cart on first use.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AddItem(r.Context(), ownerFromRequest(r), auditFromRequest(r), cartsvc.ItemInput{
			ProductID: payload.ProductID,
			VariantID: payload.VariantID,
			OfferID:   payload.OfferID,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, http.StatusOK, record)
	}
}

// CartSetItemQuantity replaces the quantity of the line identified by the
// product path parameter and the optional variant and offer in the body.
func CartSetItemQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		productID, err := validators.ParseURLParamUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.SetItemQuantity(r.Context(), ownerFromRequest(r), auditFromRequest(r), cartsvc.ItemInput{
			ProductID: productID,
			VariantID: payload.VariantID,
			OfferID:   payload.OfferID,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, http.StatusOK, record)
	}
}

// CartRemoveItem drops one line. Variant and offer come from the query string.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		productID, err := validators.ParseURLParamUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.ParseQueryUUID(r, "variant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := validators.ParseQueryUUID(r, "offer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoveItem(r.Context(), ownerFromRequest(r), auditFromRequest(r), cartsvc.LineKey{
			ProductID: productID,
			VariantID: variantID,
			OfferID:   offerID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, http.StatusOK, record)
	}
}

// CartClear drops every line from the caller's cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		record, err := svc.Clear(r.Context(), ownerFromRequest(r), auditFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, http.StatusOK, record)
	}
}

// CartApplyDiscount validates a discount code against the cart and attaches it.
func CartApplyDiscount(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload applyDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.ApplyDiscount(r.Context(), ownerFromRequest(r), auditFromRequest(r), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, http.StatusOK, record)
	}
}

// CartRemoveDiscount detaches the discount code, if any.
func CartRemoveDiscount(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		record, err := svc.RemoveDiscount(r.Context(), ownerFromRequest(r), auditFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, http.StatusOK, record)
	}
}

type addItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	OfferID   *uuid.UUID `json:"offer_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

type setQuantityRequest struct {
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	OfferID   *uuid.UUID `json:"offer_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

type applyDiscountRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type cartResponse struct {
	ID           *uuid.UUID         `json:"id,omitempty"`
	AnonymousID  *string            `json:"anonymous_id,omitempty"`
	DiscountCode *string            `json:"discount_code,omitempty"`
	Subtotal     decimal.Decimal    `json:"subtotal"`
	Discount     decimal.Decimal    `json:"discount"`
	GrandTotal   decimal.Decimal    `json:"grand_total"`
	Version      int64              `json:"version"`
	Items        []cartItemResponse `json:"items"`
}

type cartItemResponse struct {
	ProductID      uuid.UUID        `json:"product_id"`
	VariantID      *uuid.UUID       `json:"variant_id,omitempty"`
	OfferID        *uuid.UUID       `json:"offer_id,omitempty"`
	SellerID       *uuid.UUID       `json:"seller_id,omitempty"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Type           string           `json:"type"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	Thumbnail      *string          `json:"thumbnail,omitempty"`
	Quantity       int              `json:"quantity"`
	LineTotal      decimal.Decimal  `json:"line_total"`
}

func newCartResponse(record *models.Cart) cartResponse {
	if record == nil {
		return cartResponse{Items: []cartItemResponse{}}
	}
	id := record.ID
	resp := cartResponse{
		ID:           &id,
		AnonymousID:  record.AnonymousID,
		DiscountCode: record.DiscountCode,
		Subtotal:     record.SubtotalAmount,
		Discount:     record.DiscountAmount,
		GrandTotal:   record.GrandTotal,
		Version:      record.Version,
		Items:        make([]cartItemResponse, 0, len(record.Items)),
	}
	for _, item := range record.Items {
		line := cartItemResponse{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			OfferID:   item.OfferID,
			SellerID:  item.SellerID,
			Name:      item.ProductName,
			Slug:      item.ProductSlug,
			Type:      string(item.ProductType),
			UnitPrice: item.UnitPrice,
			Thumbnail: item.Thumbnail,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		}
		if item.CompareAtPrice.Valid {
			compare := item.CompareAtPrice.Decimal
			line.CompareAtPrice = &compare
		}
		resp.Items = append(resp.Items, line)
	}
	return resp
}

// writeCart echoes the guest session id so clients can persist a generated one.
func writeCart(w http.ResponseWriter, status int, record *models.Cart) {
	if record != nil && record.AnonymousID != nil && *record.AnonymousID != "" {
		w.Header().Set(middleware.AnonymousIDHeader, *record.AnonymousID)
	}
	responses.WriteSuccessStatus(w, status, newCartResponse(record))
}
