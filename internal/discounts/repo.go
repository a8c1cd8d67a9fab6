package discounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository persists discount codes and their counters.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a discount repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByCode loads a code and its audience caps by normalized code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var dc models.DiscountCode
	err := r.db.WithContext(ctx).
		Preload("AudienceCaps").
		Where("code = ?", code).
		First(&dc).Error
	if err != nil {
		return nil, err
	}
	return &dc, nil
}

// UsedBy returns how often the audience member redeemed the code.
func (r *Repository) UsedBy(ctx context.Context, codeID uuid.UUID, group enums.AudienceGroup, key string) (int, error) {
	var usage models.DiscountAudienceUsage
	err := r.db.WithContext(ctx).
		Where("discount_code_id = ? AND audience_group = ? AND audience_key = ?", codeID, group, key).
		Limit(1).
		Find(&usage).Error
	if err != nil {
		return 0, err
	}
	return usage.UsedCount, nil
}

// IncrementGlobal bumps the global counter only while it is below the usage
// limit. It reports false when the last slot was already taken.
func (r *Repository) IncrementGlobal(ctx context.Context, codeID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DiscountCode{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", codeID).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementAudience bumps the member's counter only while it is below limit.
// The usage row is created on first redemption.
func (r *Repository) IncrementAudience(ctx context.Context, codeID uuid.UUID, group enums.AudienceGroup, key string, limit int) (bool, error) {
	db := r.db.WithContext(ctx)
	seed := models.DiscountAudienceUsage{
		DiscountCodeID: codeID,
		AudienceGroup:  group,
		AudienceKey:    key,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return false, err
	}
	res := db.Model(&models.DiscountAudienceUsage{}).
		Where("discount_code_id = ? AND audience_group = ? AND audience_key = ? AND used_count < ?", codeID, group, key, limit).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
