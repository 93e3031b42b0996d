package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warehouse_inventory_backend/internal/config"
	"warehouse_inventory_backend/internal/database"
	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/internal/router"
	"warehouse_inventory_backend/internal/services"
	"warehouse_inventory_backend/internal/telemetry"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		utils.LogError(err, "Server stopped with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("info", false)
		return err
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogPretty)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			utils.LogError(err, "Failed to flush traces")
		}
	}()

	var (
		store       *repositories.Store
		healthCheck func(context.Context) error
	)
	switch cfg.Storage {
	case config.StorageMemory:
		store = repositories.NewMemoryStore()
		utils.LogWarn(nil, "Using in-memory storage; data is lost on restart")
	default:
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		store = repositories.NewPostgresStore(db)
		healthCheck = db.PingContext
		utils.LogInfo("Database initialized", map[string]interface{}{"host": cfg.Database.Host, "name": cfg.Database.Name})
	}

	svc := services.New(store, services.Options{
		Tokens:           utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).WithRefreshTTL(cfg.Auth.RefreshTTL),
		LedgerMaxRetries: cfg.Ledger.MaxRetries,
		ExpiryWindowDays: cfg.Alerts.ExpiryWindowDays,
	})

	if cfg.Auth.BootstrapAdminEmail != "" {
		admin, created, err := svc.Users.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword, cfg.Auth.BootstrapAdminName)
		if err != nil {
			return err
		}
		if created {
			utils.LogInfo("Bootstrap admin created", map[string]interface{}{"email": admin.Email})
		}
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(svc, router.Options{
			ServiceName:    cfg.Tracing.ServiceName,
			AllowedOrigins: cfg.CORSOrigins,
			HealthCheck:    healthCheck,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port, "storage": cfg.Storage})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return svc.Alerts.Run(gctx, cfg.Alerts.Interval)
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.LogInfo("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
