package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/invoices"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// GetInvoice returns one of the caller's invoices with its lines.
func GetInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		invoiceID, err := validators.ParseURLParamUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.Get(r.Context(), invoiceID, *userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInvoiceResponse(invoice))
	}
}

type invoiceResponse struct {
	ID         uuid.UUID               `json:"id"`
	Title      string                  `json:"title"`
	Currency   string                  `json:"currency"`
	Status     string                  `json:"status"`
	IssuedAt   time.Time               `json:"issued_at"`
	DueAt      time.Time               `json:"due_at"`
	Subtotal   decimal.Decimal         `json:"subtotal"`
	Tax        decimal.Decimal         `json:"tax"`
	Adjustment decimal.Decimal         `json:"adjustment"`
	Total      decimal.Decimal         `json:"total"`
	Shipping   *types.ShippingSnapshot `json:"shipping,omitempty"`
	Items      []invoiceItemResponse   `json:"items"`
}

type invoiceItemResponse struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	ReferenceID uuid.UUID       `json:"reference_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

func newInvoiceResponse(invoice *models.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:         invoice.ID,
		Title:      invoice.Title,
		Currency:   invoice.Currency,
		Status:     string(invoice.Status),
		IssuedAt:   invoice.IssuedAt,
		DueAt:      invoice.DueAt,
		Subtotal:   invoice.SubtotalAmount,
		Tax:        invoice.TaxAmount,
		Adjustment: invoice.AdjustmentAmount,
		Total:      invoice.TotalAmount,
		Shipping:   invoice.Shipping,
		Items:      make([]invoiceItemResponse, 0, len(invoice.Items)),
	}
	for _, item := range invoice.Items {
		resp.Items = append(resp.Items, invoiceItemResponse{
			Name:        item.Name,
			Type:        string(item.Type),
			ReferenceID: item.ReferenceID,
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return resp
}
