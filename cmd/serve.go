package cmd

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "inventory-backend/docs"
	"inventory-backend/internal/inventory/devices"
	"inventory-backend/internal/platform/auth"
	"inventory-backend/internal/platform/db"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, conn, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()
		return serve(cfg, conn)
	},
}

func newRouter(cfg *db.Config, conn *sql.DB) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	secret := []byte(cfg.Auth.JWTSecret)
	authSvc := auth.NewService(conn, secret)

	// /api/v1
	api := r.Group("/api/v1")
	authed := api.Group("", auth.RequireAuth(secret))
	staff := authed.Group("", auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))
	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))

	auth.RegisterRoutes(api, admin, authSvc)
	devices.RegisterRoutes(authed, staff, devices.NewService(conn, cfg.DB.Dialect()))

	return r
}

func serve(cfg *db.Config, conn *sql.DB) error {
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg, conn),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.TLS {
			// TLS設定
			dir := "config/tls/" + cfg.Mode
			certFile := filepath.Join(dir, cfg.Certificate.Cert)
			keyFile := filepath.Join(dir, cfg.Certificate.Key)
			log.Printf("[INFO] listening on https://%s", cfg.Server.Addr)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Printf("[INFO] listening on http://%s", cfg.Server.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-quit:
	}

	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
