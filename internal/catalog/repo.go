// Package catalog provides read-only snapshots of products, variants, offers
// and sellers for cart pricing.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Reader is the lookup surface the cart consumes.
type Reader interface {
	WithTx(tx *gorm.DB) Reader
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error)
}

// Repository reads catalog rows with GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) Reader {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindProduct returns a published, non-deleted product with its variants in
// creation order. Unpublished products are reported as not found.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).
		Where("id = ? AND is_published = ?", id, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindVariant returns a variant regardless of its active flag; the resolver
// decides whether an inactive variant is usable.
func (r *Repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindOffer returns an offer regardless of its active or published flags.
func (r *Repository) FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// FindSeller includes soft-deleted sellers so callers can tell a deleted
// seller apart from a missing one.
func (r *Repository) FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}
