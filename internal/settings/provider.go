// Package settings exposes operator-managed financial settings.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Provider supplies the current VAT percentage.
type Provider struct {
	db         *gorm.DB
	cache      redis.CacheStore
	ttl        time.Duration
	defaultVAT decimal.Decimal
	logg       *logger.Logger
}

// NewProvider builds a provider. cache may be nil, in which case every call
// reads the database.
func NewProvider(db *gorm.DB, cache redis.CacheStore, ttl time.Duration, defaultVAT decimal.Decimal, logg *logger.Logger) (*Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Provider{db: db, cache: cache, ttl: ttl, defaultVAT: defaultVAT, logg: logg}, nil
}

// VATPercent returns the stored vat_percent setting, or the configured
// default when no row exists. Cache failures fall through to the database.
func (p *Provider) VATPercent(ctx context.Context) (decimal.Decimal, error) {
	key := ""
	if p.cache != nil {
		key = p.cache.CacheKey("settings", models.SettingKeyVATPercent)
		cached, err := p.cache.Get(ctx, key)
		switch {
		case err == nil:
			if vat, perr := decimal.NewFromString(cached); perr == nil {
				return vat, nil
			}
		case !redis.IsMiss(err):
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "settings.cache_read_failed")
		}
	}

	vat, err := p.load(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if p.cache != nil && p.ttl > 0 {
		if err := p.cache.Set(ctx, key, vat.String(), p.ttl); err != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "settings.cache_write_failed")
		}
	}
	return vat, nil
}

func (p *Provider) load(ctx context.Context) (decimal.Decimal, error) {
	var setting models.Setting
	err := p.db.WithContext(ctx).Where("key = ?", models.SettingKeyVATPercent).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p.defaultVAT, nil
	}
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vat setting")
	}
	vat, err := decimal.NewFromString(strings.TrimSpace(setting.Value))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "vat setting is not a number")
	}
	return vat, nil
}
