package cron

import (
	"context"
	"fmt"
	"time"
)

const (
	NotificationCleanupJobName = "notification-cleanup"
	CartCleanupJobName         = "anonymous-cart-cleanup"
)

type readNotificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type anonymousCartPurger interface {
	DeleteAnonymousBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// retentionJob deletes rows older than now minus retention.
type retentionJob struct {
	name      string
	retention time.Duration
	purge     func(ctx context.Context, cutoff time.Time) (int64, error)
	now       func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	rows, err := j.purge(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", j.name, err)
	}
	return rows, nil
}

func newRetentionJob(name string, retentionDays int, purge func(context.Context, time.Time) (int64, error)) (*retentionJob, error) {
	if retentionDays <= 0 {
		return nil, fmt.Errorf("%s: retention must be positive", name)
	}
	return &retentionJob{
		name:      name,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		purge:     purge,
		now:       time.Now,
	}, nil
}

// NewNotificationCleanupJob purges notifications read more than
// retentionDays ago. Unread notifications are never removed.
func NewNotificationCleanupJob(repo readNotificationPurger, retentionDays int) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	job, err := newRetentionJob(NotificationCleanupJobName, retentionDays, repo.DeleteReadBefore)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// NewCartCleanupJob purges guest carts idle for more than retentionDays.
// Carts owned by a user are kept.
func NewCartCleanupJob(repo anonymousCartPurger, retentionDays int) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	job, err := newRetentionJob(CartCleanupJobName, retentionDays, repo.DeleteAnonymousBefore)
	if err != nil {
		return nil, err
	}
	return job, nil
}
