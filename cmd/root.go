// Package cmd は inventory コマンドの CLI（serve / migrate / useradd）
package cmd

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/spf13/cobra"

	"inventory-backend/internal/platform/db"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "inventory",
	Short:         "Device inventory backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", db.DefaultConfigPath, "path to config.yaml")
	rootCmd.AddCommand(serveCmd, migrateCmd, useraddCmd)
}

// Execute はサブコマンド未指定なら serve として動く
func Execute() {
	args := os.Args[1:]
	if len(args) == 0 {
		rootCmd.SetArgs([]string{"serve"})
	}
	if err := rootCmd.Execute(); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// 設定読み込み → 接続 → マイグレーション
func openDB(ctx context.Context) (*db.Config, *sql.DB, error) {
	cfg, err := db.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[INFO] mode:%s driver:%s", cfg.Mode, cfg.DB.Driver)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, conn, cfg.DB.Driver); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return cfg, conn, nil
}
