package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func fixClock(t *testing.T, job Job, now time.Time) {
	t.Helper()
	rj, ok := job.(*retentionJob)
	require.True(t, ok, "unexpected job type %T", job)
	rj.now = func() time.Time { return now }
}

func TestCartCleanupJobPurgesIdleGuestCarts(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	idle := "idle-guest"
	active := "active-guest"
	userID := uuid.New()
	idleCart := &models.Cart{AnonymousID: &idle}
	idleCart.UpdatedAt = now.Add(-15 * 24 * time.Hour)
	activeCart := &models.Cart{AnonymousID: &active}
	activeCart.UpdatedAt = now.Add(-2 * 24 * time.Hour)
	userCart := &models.Cart{UserID: &userID}
	userCart.UpdatedAt = now.Add(-60 * 24 * time.Hour)
	dbtest.Seed(t, db, idleCart, activeCart, userCart)

	job, err := NewCartCleanupJob(cart.NewRepository(db), 14)
	require.NoError(t, err)
	require.Equal(t, CartCleanupJobName, job.Name())
	fixClock(t, job, now)

	rows, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	var left int64
	require.NoError(t, db.Model(&models.Cart{}).Count(&left).Error)
	require.Equal(t, int64(2), left)
}

func TestNotificationCleanupJobUsesRetention(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	readAt := now.Add(-31 * 24 * time.Hour)
	dbtest.Seed(t, db, &models.Notification{
		UserID:    uuid.New(),
		Type:      enums.NotificationTypeSellerSale,
		Title:     "sale",
		Message:   "sold",
		ReadAt:    &readAt,
		CreatedAt: readAt,
	})

	job, err := NewNotificationCleanupJob(notifications.NewRepository(db), 30)
	require.NoError(t, err)
	fixClock(t, job, now)

	rows, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)
}

type failingPurger struct{}

func (failingPurger) DeleteAnonymousBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("boom")
}

func TestRetentionJobWrapsErrors(t *testing.T) {
	job, err := NewCartCleanupJob(failingPurger{}, 1)
	require.NoError(t, err)
	_, err = job.Run(context.Background())
	require.ErrorContains(t, err, CartCleanupJobName)

	_, err = NewCartCleanupJob(failingPurger{}, 0)
	require.Error(t, err)
}
