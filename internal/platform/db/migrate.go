package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed schema
var schemaFS embed.FS

// Migrate は schema/<driver>/*.sql をファイル名順に1回だけ適用する。
// 適用済みファイルは schema_migrations に記録される。
func Migrate(ctx context.Context, conn *sql.DB, driver string) error {
	dir := path.Join("schema", driver)
	entries, err := fs.ReadDir(schemaFS, dir)
	if err != nil {
		return fmt.Errorf("no schema for driver %q: %w", driver, err)
	}

	if _, err := conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  filename   VARCHAR(255) NOT NULL PRIMARY KEY,
  applied_at TIMESTAMP    NOT NULL
)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var n int
		if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE filename = ?`, name).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			continue
		}

		raw, err := fs.ReadFile(schemaFS, path.Join(dir, name))
		if err != nil {
			return err
		}
		stmts := splitStatements(string(raw))
		if len(stmts) == 0 {
			return fmt.Errorf("empty migration: %s", name)
		}

		// MySQL の DDL は暗黙コミットされるのでTxは記録の一貫性のためだけ
		err = RunInTx(ctx, conn, nil, func(ctx context.Context, tx DBTX) error {
			for _, s := range stmts {
				if _, err := tx.ExecContext(ctx, s); err != nil {
					return fmt.Errorf("migration %s failed: %w", name, err)
				}
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename, applied_at) VALUES (?, ?)`, name, time.Now().UTC())
			return err
		})
		if err != nil {
			return err
		}
		log.Printf("[INFO] applied migration %s", name)
	}
	return nil
}

// splitStatements: ";" で文を区切る（文字列リテラル中に ";" を書かないこと）
func splitStatements(sqlText string) []string {
	var out []string
	for _, part := range strings.Split(sqlText, ";") {
		s := strings.TrimSpace(part)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
