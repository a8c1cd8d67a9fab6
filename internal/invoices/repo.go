package invoices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists invoices with their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Invoice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an invoice repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
