package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name, time.Now())
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	if cfg.FeatureFlags.UseSQLite {
		fail("goose migrations target postgres; unset %s", config.EnvUseSQLite)
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
			fail("goose %s failed: %v", *cmd, err)
		}
	case "version":
		if *version == "" {
			fail("missing -version for version command")
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			fail("goose version migrate failed: %v", err)
		}
	default:
		fail("unknown -cmd value: %s", *cmd)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
