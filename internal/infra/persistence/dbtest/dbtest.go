// Package dbtest 为测试提供一个迁移完成的临时 SQLite 数据库
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photox-team/photox-app/internal/infra/persistence/database"
	"github.com/photox-team/photox-app/pkg/constant"
)

// DBType 测试数据库的类型
const DBType = "sqlite"

// Open 在 t.TempDir 中创建数据库，完成迁移并写入哨兵标签
func Open(t testing.TB) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", database.SQLiteDSN(path))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	drv, err := database.NewDriver(db, DBType, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), drv))

	_, err = db.Exec("INSERT INTO tags (id, name) VALUES (?, ?)", constant.SentinelTagID, constant.SentinelTagName)
	require.NoError(t, err)
	return db
}

// SeedTags 追加测试标签
func SeedTags(t testing.TB, db *sql.DB, names map[uint]string) {
	t.Helper()
	for id, name := range names {
		_, err := db.Exec("INSERT INTO tags (id, name) VALUES (?, ?)", id, name)
		require.NoError(t, err)
	}
}
