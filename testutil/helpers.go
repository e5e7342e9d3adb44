// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
//
//	ctx := testutil.TestContext(t)
//	db := testutil.NewRegistryDB(t, builtin.Descriptors()...)
// =============================================================================
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/methodflow/registry"
)

// TestContext 返回 30 秒超时的测试上下文
func TestContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// NewTestDB 在临时目录中打开一个 SQLite 数据库, 测试结束时关闭
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewRegistryDB 建表并写入给定描述, 任一写入失败即终止测试
func NewRegistryDB(t testing.TB, ds ...registry.MethodDescriptor) *gorm.DB {
	t.Helper()
	db := NewTestDB(t)
	store := registry.NewStore(db, nil)
	ctx := TestContext(t)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	for _, o := range store.UpsertMany(ctx, ds) {
		if !o.OK() {
			t.Fatalf("seed %s: %v", o.Name, o.Err)
		}
	}
	return db
}
