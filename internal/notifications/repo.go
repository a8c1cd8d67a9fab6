package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, params listParams) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markResult, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type markResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) ListByUser(ctx context.Context, params listParams) ([]models.Notification, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", params.UserID)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if c := params.Cursor; c != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var rows []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return markResult{}, result.Error
	}
	if result.RowsAffected > 0 {
		return markResult{Updated: true, Found: true}, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Count(&count).Error; err != nil {
		return markResult{}, err
	}
	return markResult{Found: count > 0}, nil
}

// DeleteReadBefore purges notifications that were read before cutoff.
// Unread notifications are kept regardless of age.
func (r *repositoryImpl) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
