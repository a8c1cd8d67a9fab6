package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/cron"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const lockKeyFormat = "sf:cron-worker:lock:%s"

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	lock, err := cron.NewRedisLock(redisClient, fmt.Sprintf(lockKeyFormat, cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	notificationJob, err := cron.NewNotificationCleanupJob(notifications.NewRepository(dbClient.DB()), cfg.Cron.NotificationRetentionDays)
	if err != nil {
		logg.Error(ctx, "failed to create notification cleanup job", err)
		os.Exit(1)
	}
	cartJob, err := cron.NewCartCleanupJob(cart.NewRepository(dbClient.DB()), cfg.Cron.AnonymousCartRetentionDays)
	if err != nil {
		logg.Error(ctx, "failed to create cart cleanup job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(notificationJob, cartJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron run failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}
