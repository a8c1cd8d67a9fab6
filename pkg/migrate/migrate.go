package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

const (
	DefaultDir = "pkg/migrate/migrations"
	dialect    = "postgres"
)

// Run executes a goose command against the storefront database.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if err := prepare(db, dir); err != nil {
		return err
	}
	// goose prints status output to stdout
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it reaches targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := ParseVersion(targetVersion)
	if err != nil {
		return err
	}
	if err := prepare(db, dir); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}

// ParseVersion validates a YYYYMMDDHHMMSS migration version.
func ParseVersion(value string) (int64, error) {
	if len(value) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", value)
	}
	version, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", value, err)
	}
	return version, nil
}

func prepare(db *sql.DB, dir string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}
