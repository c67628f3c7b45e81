// Package dbtest は各パッケージのテストで使う SQLite データベースを用意する。
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"inventory-backend/internal/platform/db"
)

// Open は t.TempDir() 上にスキーマ適用済みの SQLite DB を作る。後始末は t.Cleanup で行う。
func Open(t testing.TB) *sql.DB {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "inventory_test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(context.Background(), conn, db.DriverSQLite); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	return conn
}
