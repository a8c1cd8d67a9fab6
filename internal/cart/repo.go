package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ErrStaleCart is returned when the cart changed after it was read.
var ErrStaleCart = errors.New("cart was modified concurrently")

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	Finder
	WithTx(tx *gorm.DB) CartRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart, created bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repository persists carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByID loads a cart and its lines.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.withItems(ctx).Where("id = ?", id).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByUserID loads the oldest cart owned by the user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.withItems(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByAnonymousID loads the cart owned by the anonymous session.
func (r *Repository) FindByAnonymousID(ctx context.Context, anonymousID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.withItems(ctx).
		Where("anonymous_id = ?", anonymousID).
		Order("created_at ASC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Save writes the cart header and replaces its lines. Existing carts are
// updated only if their version is unchanged since they were read; the
// version is bumped on success and ErrStaleCart is returned otherwise.
func (r *Repository) Save(ctx context.Context, cart *models.Cart, created bool) error {
	db := r.db.WithContext(ctx)
	if created {
		cart.Version = 1
		if err := db.Omit("Items").Create(cart).Error; err != nil {
			return err
		}
	} else {
		res := db.Model(&models.Cart{}).
			Where("id = ? AND version = ?", cart.ID, cart.Version).
			Updates(map[string]any{
				"discount_code":   cart.DiscountCode,
				"subtotal_amount": cart.SubtotalAmount,
				"discount_amount": cart.DiscountAmount,
				"grand_total":     cart.GrandTotal,
				"version":         cart.Version + 1,
				"updated_at":      cart.UpdatedAt,
				"updated_by":      cart.UpdatedBy,
				"updated_ip":      cart.UpdatedIP,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleCart
		}
		cart.Version++
	}
	return r.replaceItems(ctx, cart)
}

func (r *Repository) replaceItems(ctx context.Context, cart *models.Cart) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		return nil
	}
	for i := range cart.Items {
		cart.Items[i].CartID = cart.ID
		cart.Items[i].Position = i
	}
	return db.Create(&cart.Items).Error
}

// Delete removes the cart and its lines.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cart_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&models.Cart{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAnonymousBefore removes guest carts, and their lines, that have not
// been touched since cutoff. It returns the number of carts removed.
func (r *Repository) DeleteAnonymousBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.db.WithContext(ctx)
	stale := db.Model(&models.Cart{}).
		Select("id").
		Where("user_id IS NULL AND anonymous_id IS NOT NULL AND updated_at < ?", cutoff)
	if err := db.Where("cart_id IN (?)", stale).Delete(&models.CartItem{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("user_id IS NULL AND anonymous_id IS NOT NULL AND updated_at < ?", cutoff).Delete(&models.Cart{})
	return res.RowsAffected, res.Error
}
