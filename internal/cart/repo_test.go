package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/audit"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func newCartWithLine(t *testing.T) *models.Cart {
	t.Helper()
	anon := "anon-" + uuid.NewString()[:8]
	cart := &models.Cart{ID: uuid.New(), AnonymousID: &anon}
	product := baseProduct()
	AddLine(cart, LineKey{ProductID: product.ID}, snapshotAt(product, 100), 2, audit.Context{})
	Recalculate(cart, price(0))
	return cart
}

func TestRepositorySaveAndLoad(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := newCartWithLine(t)
	require.NoError(t, repo.Save(ctx, cart, true))
	require.Equal(t, int64(1), cart.Version)

	loaded, err := repo.FindByAnonymousID(ctx, *cart.AnonymousID)
	require.NoError(t, err)
	require.Equal(t, cart.ID, loaded.ID)
	require.Len(t, loaded.Items, 1)
	require.Equal(t, cart.Items[0].ID, loaded.Items[0].ID)
	require.True(t, loaded.SubtotalAmount.Equal(price(200)))
}

func TestRepositorySaveReplacesLines(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := newCartWithLine(t)
	require.NoError(t, repo.Save(ctx, cart, true))

	other := baseProduct()
	AddLine(cart, LineKey{ProductID: other.ID}, snapshotAt(other, 50), 1, audit.Context{})
	RemoveLine(cart, LineKey{ProductID: cart.Items[0].ProductID})
	Recalculate(cart, price(0))
	require.NoError(t, repo.Save(ctx, cart, false))
	require.Equal(t, int64(2), cart.Version)

	loaded, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	require.Equal(t, other.ID, loaded.Items[0].ProductID)
	require.Equal(t, 0, loaded.Items[0].Position)
	require.True(t, loaded.GrandTotal.Equal(price(50)))
}

func TestRepositorySaveDetectsStaleVersion(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := newCartWithLine(t)
	require.NoError(t, repo.Save(ctx, cart, true))

	first, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, first, false))
	err = repo.Save(ctx, second, false)
	require.True(t, errors.Is(err, ErrStaleCart))
}

func TestRepositoryFindByUserID(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	cart := &models.Cart{ID: uuid.New(), UserID: &userID}
	require.NoError(t, repo.Save(ctx, cart, true))

	loaded, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, cart.ID, loaded.ID)

	_, err = repo.FindByUserID(ctx, uuid.New())
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryDelete(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := newCartWithLine(t)
	require.NoError(t, repo.Save(ctx, cart, true))
	require.NoError(t, repo.Delete(ctx, cart.ID))

	var lines int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&lines).Error)
	require.Zero(t, lines)

	err := repo.Delete(ctx, cart.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryDeleteAnonymousBefore(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	stale := newCartWithLine(t)
	stale.UpdatedAt = now.Add(-40 * 24 * time.Hour)
	require.NoError(t, repo.Save(ctx, stale, true))

	fresh := newCartWithLine(t)
	fresh.UpdatedAt = now.Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, fresh, true))

	userID := uuid.New()
	owned := &models.Cart{ID: uuid.New(), UserID: &userID}
	owned.UpdatedAt = now.Add(-90 * 24 * time.Hour)
	require.NoError(t, repo.Save(ctx, owned, true))

	deleted, err := repo.DeleteAnonymousBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, stale.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	var lines int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", stale.ID).Count(&lines).Error)
	require.Zero(t, lines)

	_, err = repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, owned.ID)
	require.NoError(t, err)
}
