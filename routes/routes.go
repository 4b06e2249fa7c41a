package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kimtaehoon222/crypto-stock-monitor/controllers"
	"github.com/kimtaehoon222/crypto-stock-monitor/middleware"
	"github.com/kimtaehoon222/crypto-stock-monitor/services"
	"gorm.io/gorm"
)

// Dependencies bundles the shared services the HTTP layer needs.
// Cache, Archive and Hub may be nil when the backing system is not
// configured; the controllers degrade gracefully.
type Dependencies struct {
	Store   services.PriceStore
	Stats   *services.StatsService
	Cache   *services.StatsCache
	Archive *services.AlertArchive
	Hub     *services.StreamHub
}

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, deps *Dependencies) {
	// Initialize services and controllers
	assetService := services.NewAssetService(db)
	ruleService := services.NewAlertRuleService(db)

	assetController := controllers.NewAssetController(assetService)
	priceController := controllers.NewPriceController(deps.Store, deps.Stats, deps.Cache, assetService, deps.Hub)
	alertController := controllers.NewAlertController(ruleService, deps.Archive)

	ingestLimiter := middleware.NewRateLimiter(600, time.Minute)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Asset registry routes
		assets := api.Group("/assets")
		{
			assets.GET("", assetController.GetAssets)
			assets.GET("/types", assetController.GetAssetTypes)
			assets.GET("/:id", assetController.GetAsset)
			assets.POST("", assetController.CreateAsset)
			assets.PUT("/:id", assetController.UpdateAsset)
			assets.DELETE("/:id", assetController.DeleteAsset)

			// Per-asset price and alert data
			assets.GET("/:id/prices", priceController.GetPriceHistory)
			assets.GET("/:id/stats", priceController.GetAssetStats)
			assets.GET("/:id/alerts", alertController.GetRules)
			assets.GET("/:id/alerts/events", alertController.GetEvents)
		}

		// Exchange lookup
		api.GET("/exchanges", assetController.GetExchanges)

		// Tick ingestion
		prices := api.Group("/prices")
		{
			prices.POST("", middleware.IngestRateLimit(ingestLimiter), priceController.IngestTick)
		}

		// Alert rule routes
		alerts := api.Group("/alerts")
		{
			alerts.POST("", alertController.CreateRule)
			alerts.PUT("/:id", alertController.UpdateRule)
			alerts.DELETE("/:id", alertController.DeleteRule)
		}
	}

	// Realtime stream
	if deps.Hub != nil {
		streamController := controllers.NewStreamController(deps.Hub)
		router.GET("/ws", streamController.Stream)
	}
}
