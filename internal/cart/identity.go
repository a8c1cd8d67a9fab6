package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const maxAnonymousIDLength = 64

// Owner identifies who a cart belongs to: a registered user, an anonymous
// session, or neither yet.
type Owner struct {
	UserID      *uuid.UUID
	AnonymousID string
}

// Finder is the lookup surface used to resolve a cart for an owner.
type Finder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByAnonymousID(ctx context.Context, anonymousID string) (*models.Cart, error)
}

func (o Owner) validate() (Owner, error) {
	o.AnonymousID = strings.TrimSpace(o.AnonymousID)
	if o.UserID != nil && *o.UserID == uuid.Nil {
		return o, pkgerrors.New(pkgerrors.CodeValidation, "user id is invalid")
	}
	if o.AnonymousID != "" && !validAnonymousID(o.AnonymousID) {
		return o, pkgerrors.New(pkgerrors.CodeValidation, "anonymous id is invalid")
	}
	return o, nil
}

func validAnonymousID(id string) bool {
	if len(id) > maxAnonymousIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Resolve finds the owner's cart by user id first and anonymous id second.
// When nothing matches and create is set, it returns a new unsaved cart bound
// to the user, or to the anonymous id (generated when absent). The boolean
// reports whether the cart was created by this call. With create unset a
// missing cart yields (nil, false, nil).
func Resolve(ctx context.Context, finder Finder, owner Owner, create bool) (*models.Cart, bool, error) {
	owner, err := owner.validate()
	if err != nil {
		return nil, false, err
	}

	if owner.UserID != nil {
		cart, err := finder.FindByUserID(ctx, *owner.UserID)
		if err == nil {
			return cart, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
	}
	if owner.AnonymousID != "" {
		cart, err := finder.FindByAnonymousID(ctx, owner.AnonymousID)
		if err == nil {
			return cart, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
	}

	if !create {
		return nil, false, nil
	}

	cart := &models.Cart{
		ID:             uuid.New(),
		SubtotalAmount: decimal.Zero,
		DiscountAmount: decimal.Zero,
		GrandTotal:     decimal.Zero,
	}
	if owner.UserID != nil {
		userID := *owner.UserID
		cart.UserID = &userID
	} else {
		anonymousID := owner.AnonymousID
		if anonymousID == "" {
			anonymousID = uuid.NewString()
		}
		cart.AnonymousID = &anonymousID
	}
	return cart, true, nil
}
