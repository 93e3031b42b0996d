package router

import (
	"context"
	"net/http"
	"time"

	"warehouse_inventory_backend/internal/handlers"
	"warehouse_inventory_backend/internal/middleware"
	"warehouse_inventory_backend/internal/services"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Options configures the HTTP surface.
type Options struct {
	ServiceName    string
	AllowedOrigins []string
	// HealthCheck reports storage readiness for /health. Nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

// New builds a gin engine with the common middleware and every route.
func New(svc *services.Services, opts Options) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(opts.ServiceName))
	engine.Use(utils.GinLogger())

	config := cors.DefaultConfig()
	config.AllowOrigins = opts.AllowedOrigins
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.ExposeHeaders = []string{"Content-Disposition"}
	config.AllowCredentials = true
	engine.Use(cors.New(config))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	engine.GET("/health", func(c *gin.Context) {
		if opts.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := opts.HealthCheck(ctx); err != nil {
				utils.LogError(err, "Health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	Setup(engine, svc)
	return engine
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, svc *services.Services) {
	authHandler := handlers.NewAuthHandler(svc.Auth)
	stockHandler := handlers.NewStockHandler(svc.Stock)
	lotHandler := handlers.NewLotHandler(svc.Lots)
	stocktakingHandler := handlers.NewStocktakingHandler(svc.Stocktaking)
	masterHandler := handlers.NewMasterDataHandler(svc.Master)
	userHandler := handlers.NewUserHandler(svc.Users)
	auditHandler := handlers.NewAuditHandler(svc.Audit)
	reportHandler := handlers.NewReportHandler(svc.Reports, svc.Alerts, svc.Analytics)

	apiV1 := engine.Group("/api/v1")
	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware(svc.Auth))
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupStockRoutes(authenticated, stockHandler)
		SetupLotRoutes(authenticated, lotHandler)
		SetupStocktakingRoutes(authenticated, stocktakingHandler)
		SetupProductRoutes(authenticated, masterHandler)
		SetupLocationRoutes(authenticated, masterHandler)
		SetupUserRoutes(authenticated, userHandler)
		SetupAuditRoutes(authenticated, auditHandler)
		SetupReportRoutes(authenticated, reportHandler)
	}
}
