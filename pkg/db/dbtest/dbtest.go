// Package dbtest opens isolated in-memory databases for repository tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Open returns a migrated SQLite database private to the calling test. The
// pool is pinned to one connection so the in-memory database lives as long
// as the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:test_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// Seed inserts each value, failing the test on the first error.
func Seed(t testing.TB, db *gorm.DB, values ...any) {
	t.Helper()
	for _, v := range values {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("seed %T: %v", v, err)
		}
	}
}
