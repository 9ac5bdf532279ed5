package testdb

import (
	"testing"

	"proposal-pipeline-backend/db"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Open in-memory sqlite с применёнными миграциями. Одно соединение,
// иначе каждое новое соединение получит пустую базу.
func Open(tb testing.TB) *gorm.DB {
	tb.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sqlite conn: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err = db.AutoMigrateDB(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return gdb
}
