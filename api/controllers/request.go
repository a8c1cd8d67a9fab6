package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/audit"
	"github.com/angelmondragon/storefront-backend/internal/cart"
)

// ownerFromRequest builds the cart owner from the resolved identity.
func ownerFromRequest(r *http.Request) cart.Owner {
	return cart.Owner{
		UserID:      middleware.UserUUIDFromContext(r.Context()),
		AnonymousID: middleware.AnonymousIDFromContext(r.Context()),
	}
}

func auditFromRequest(r *http.Request) audit.Context {
	return audit.NewContext(
		middleware.UserUUIDFromContext(r.Context()),
		middleware.ClientIPFromContext(r.Context()),
		time.Now(),
	)
}
