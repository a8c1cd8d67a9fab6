// Package addresses reads saved shipping addresses, always scoped to their
// owner.
package addresses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Reader looks up addresses owned by a user.
type Reader interface {
	FindByIDAndUser(ctx context.Context, addressID, userID uuid.UUID) (*models.UserAddress, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an address reader bound to db.
func NewRepository(db *gorm.DB) Reader {
	return &repository{db: db}
}

// FindByIDAndUser returns gorm.ErrRecordNotFound for addresses that exist but
// belong to someone else.
func (r *repository) FindByIDAndUser(ctx context.Context, addressID, userID uuid.UUID) (*models.UserAddress, error) {
	var address models.UserAddress
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// Snapshot copies the shipping fields so later edits to the address never
// change an issued invoice.
func Snapshot(address *models.UserAddress) *types.ShippingSnapshot {
	if address == nil {
		return nil
	}
	return &types.ShippingSnapshot{
		RecipientName:  address.RecipientName,
		RecipientPhone: address.RecipientPhone,
		Province:       address.Province,
		City:           address.City,
		PostalCode:     address.PostalCode,
		AddressLine:    address.AddressLine,
		Plaque:         copyString(address.Plaque),
		Unit:           copyString(address.Unit),
	}
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
