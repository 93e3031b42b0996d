package router

import (
	"warehouse_inventory_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupPublicAuthRoutes sets up the routes reachable without a session.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/login", authHandler.LoginUser)
	group.POST("/refresh", authHandler.RefreshToken)
}

// SetupAuthenticatedAuthRoutes sets up the session routes.
func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/logout", authHandler.LogoutUser)
	group.GET("/me", authHandler.GetCurrentUser)
}

// SetupStockRoutes sets up the stock ledger routes.
func SetupStockRoutes(authenticatedGroup *gin.RouterGroup, stockHandler *handlers.StockHandler) {
	stockRoutes := authenticatedGroup.Group("/stock")
	{
		stockRoutes.GET("", stockHandler.SearchStock)
		stockRoutes.GET("/:productId/:locationId", stockHandler.GetStock)
		stockRoutes.POST("/inbound", stockHandler.Inbound)
		stockRoutes.POST("/outbound", stockHandler.Outbound)
		stockRoutes.POST("/transfer", stockHandler.Transfer)
		stockRoutes.POST("/reserve", stockHandler.Reserve)
		stockRoutes.POST("/release", stockHandler.Release)
	}

	authenticatedGroup.GET("/products/:id/stock", stockHandler.ProductTotal)

	historyRoutes := authenticatedGroup.Group("/transactions")
	{
		historyRoutes.GET("/product/:productId", stockHandler.ProductHistory)
		historyRoutes.GET("/product/:productId/range", stockHandler.ProductHistoryRange)
		historyRoutes.GET("/location/:locationId", stockHandler.LocationHistory)
	}
}

// SetupLotRoutes sets up the lot registry routes.
func SetupLotRoutes(authenticatedGroup *gin.RouterGroup, lotHandler *handlers.LotHandler) {
	lotRoutes := authenticatedGroup.Group("/lots")
	{
		lotRoutes.GET("/expiring", lotHandler.Expiring)
		lotRoutes.GET("/expired", lotHandler.Expired)
		lotRoutes.GET("/product/:productId", lotHandler.ByProduct)
		lotRoutes.GET("/product/:productId/:locationId/:lotNumber", lotHandler.GetLot)
		lotRoutes.GET("/history/:lotNumber", lotHandler.History)
	}
}

// SetupStocktakingRoutes sets up the stocktaking workflow routes.
func SetupStocktakingRoutes(authenticatedGroup *gin.RouterGroup, stocktakingHandler *handlers.StocktakingHandler) {
	stocktakingRoutes := authenticatedGroup.Group("/stocktakings")
	{
		stocktakingRoutes.POST("", stocktakingHandler.Create)
		stocktakingRoutes.GET("", stocktakingHandler.List)
		stocktakingRoutes.GET("/:id", stocktakingHandler.Get)
		stocktakingRoutes.POST("/:id/start", stocktakingHandler.Start)
		stocktakingRoutes.PUT("/:id/items", stocktakingHandler.UpdateItem)
		stocktakingRoutes.POST("/:id/submit", stocktakingHandler.Submit)
		stocktakingRoutes.POST("/:id/approve", stocktakingHandler.Approve)
		stocktakingRoutes.POST("/:id/reject", stocktakingHandler.Reject)
	}
}

// SetupProductRoutes sets up the product master data routes.
func SetupProductRoutes(authenticatedGroup *gin.RouterGroup, masterHandler *handlers.MasterDataHandler) {
	productRoutes := authenticatedGroup.Group("/products")
	{
		productRoutes.POST("", masterHandler.CreateProduct)
		productRoutes.GET("", masterHandler.GetProducts)
		productRoutes.GET("/:id", masterHandler.GetProductByID)
		productRoutes.PUT("/:id", masterHandler.UpdateProduct)
		productRoutes.DELETE("/:id", masterHandler.DeleteProduct)
	}
}

// SetupLocationRoutes sets up the location master data routes.
func SetupLocationRoutes(authenticatedGroup *gin.RouterGroup, masterHandler *handlers.MasterDataHandler) {
	locationRoutes := authenticatedGroup.Group("/locations")
	{
		locationRoutes.POST("", masterHandler.CreateLocation)
		locationRoutes.GET("", masterHandler.GetLocations)
		locationRoutes.GET("/:id", masterHandler.GetLocationByID)
		locationRoutes.PUT("/:id", masterHandler.UpdateLocation)
		locationRoutes.DELETE("/:id", masterHandler.DeleteLocation)
	}
}

// SetupUserRoutes sets up user administration and the role list.
func SetupUserRoutes(authenticatedGroup *gin.RouterGroup, userHandler *handlers.UserHandler) {
	userRoutes := authenticatedGroup.Group("/users")
	{
		userRoutes.POST("", userHandler.CreateUser)
		userRoutes.GET("", userHandler.GetUsers)
		userRoutes.GET("/:id", userHandler.GetUserByID)
		userRoutes.PUT("/:id", userHandler.UpdateUser)
		userRoutes.DELETE("/:id", userHandler.DeleteUser)
	}
	authenticatedGroup.GET("/roles", userHandler.GetRoles)
}

// SetupAuditRoutes sets up the audit log routes.
func SetupAuditRoutes(authenticatedGroup *gin.RouterGroup, auditHandler *handlers.AuditHandler) {
	auditRoutes := authenticatedGroup.Group("/audit")
	{
		auditRoutes.GET("", auditHandler.ListAudit)
		auditRoutes.GET("/export", auditHandler.ExportAudit)
	}
}

// SetupReportRoutes sets up reports, analytics and stock alerts.
func SetupReportRoutes(authenticatedGroup *gin.RouterGroup, reportHandler *handlers.ReportHandler) {
	authenticatedGroup.GET("/reports/valuation", reportHandler.Valuation)

	analyticsRoutes := authenticatedGroup.Group("/analytics")
	{
		analyticsRoutes.GET("/abc/:locationId", reportHandler.ABCAnalysis)
		analyticsRoutes.GET("/turnover/:productId", reportHandler.Turnover)
		analyticsRoutes.GET("/slow-moving/:locationId", reportHandler.SlowMoving)
	}

	alertRoutes := authenticatedGroup.Group("/alerts")
	{
		alertRoutes.GET("", reportHandler.GetAlerts)
		alertRoutes.POST("/:id/resolve", reportHandler.ResolveAlert)
	}
}
