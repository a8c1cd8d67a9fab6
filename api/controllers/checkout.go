package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Checkout converts the caller's cart into an invoice.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), checkoutsvc.Input{
			Owner:             ownerFromRequest(r),
			ShippingAddressID: payload.ShippingAddressID,
			Audit:             auditFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithInvoiceID(r.Context(), result.InvoiceID.String()), "checkout.completed")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type checkoutRequest struct {
	ShippingAddressID *uuid.UUID `json:"shipping_address_id,omitempty"`
}
