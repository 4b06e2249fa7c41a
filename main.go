package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/config"
	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/kimtaehoon222/crypto-stock-monitor/routes"
	"github.com/kimtaehoon222/crypto-stock-monitor/scheduler"
	"github.com/kimtaehoon222/crypto-stock-monitor/services"

	"github.com/gin-gonic/gin"
)

// dbInitialized tracks whether database has been successfully initialized
// so the /ready endpoint can dynamically check readiness across goroutines
var dbInitialized bool
var dbInitMutex sync.RWMutex

func main() {
	log.Println("==============================================")
	log.Println("  Crypto Stock Monitor - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add middlewares
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Setup health check endpoints FIRST so orchestrators can detect the
	// service is up; the database is initialized in background
	setupHealthEndpoints(router)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	// Start server immediately so health checks pass while the database
	// comes up
	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Initialize database, services and routes in background
	var jobScheduler *scheduler.Scheduler
	var statsCache *services.StatsCache
	var alertArchive *services.AlertArchive
	var streamHub *services.StreamHub

	go func() {
		db, err := config.InitDB()
		if err != nil {
			log.Printf("ERROR: Database connection failed: %v", err)
			log.Println("Service will continue in limited mode (health check only)")
			return
		}

		log.Println("Running database migrations...")
		if err := runMigrations(); err != nil {
			log.Printf("ERROR: Migration failed: %v", err)
		} else {
			log.Println("Database migrations completed successfully")
		}

		// Seed lookup tables
		if err := models.SeedLookupTables(db); err != nil {
			log.Printf("Warning: Could not seed lookup tables: %v", err)
		}

		// Core services
		priceStore := services.NewGormPriceStore(db)
		statsService := services.NewStatsService(priceStore)

		// Optional stats cache
		statsCache, err = services.NewStatsCache(cfg.RedisAddr(), cfg.StatsCacheTTL)
		if err != nil {
			log.Printf("Redis not available, stats caching disabled: %v", err)
			statsCache = nil
		}

		// Realtime stream hub
		streamHub = services.NewStreamHub()
		go streamHub.Run()

		// Alert notification sinks
		evaluator := services.NewAlertEvaluator(services.LogSink{}, streamHub)
		if cfg.MongoURI != "" {
			alertArchive, err = services.NewAlertArchive(cfg.MongoURI)
			if err != nil {
				log.Printf("MongoDB not available, alert archiving disabled: %v", err)
				alertArchive = nil
			} else {
				evaluator.AddSink(alertArchive)
			}
		} else {
			log.Println("MONGODB_URI not set, alert archiving disabled")
		}

		// Mark database as ready
		dbInitMutex.Lock()
		dbInitialized = true
		dbInitMutex.Unlock()

		// Setup all API routes
		routes.SetupRoutes(router, db, &routes.Dependencies{
			Store:   priceStore,
			Stats:   statsService,
			Cache:   statsCache,
			Archive: alertArchive,
			Hub:     streamHub,
		})

		// Start background scheduler
		assetService := services.NewAssetService(db)
		ruleService := services.NewAlertRuleService(db)
		var feed services.PriceFeed
		if cfg.PriceFeed == "binance" {
			log.Println("Using Binance market data feed")
			feed = services.NewBinanceFeed()
		} else {
			log.Println("Using random walk price feed")
			feed = services.NewRandomWalkFeed(time.Now().UnixNano())
		}

		jobScheduler = scheduler.NewScheduler(
			assetService,
			ruleService,
			priceStore,
			statsService,
			evaluator,
			feed,
			streamHub,
			cfg.PriceUpdateInterval,
			cfg.AlertCheckInterval,
		)
		jobScheduler.Start()

		log.Println("Application fully initialized with database")
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	// Stop scheduler first so no new ticks start
	if jobScheduler != nil {
		jobScheduler.Stop()
	}
	if streamHub != nil {
		streamHub.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if statsCache != nil {
		statsCache.Close()
	}
	if alertArchive != nil {
		alertArchive.Close(ctx)
	}
	if config.DB != nil {
		sqlDB, err := config.DB.DB()
		if err == nil {
			sqlDB.Close()
			log.Println("Database connection closed")
		}
	}

	log.Println("Server shutdown completed")
}

// runMigrations runs all database migrations
func runMigrations() error {
	db := config.DB

	if err := models.MigrateAssetModels(db); err != nil {
		return err
	}
	if err := models.MigratePriceModels(db); err != nil {
		return err
	}
	if err := models.MigrateAlertModels(db); err != nil {
		return err
	}
	return nil
}

// setupHealthEndpoints sets up liveness and readiness endpoints
func setupHealthEndpoints(router *gin.Engine) {
	// Root endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Crypto Stock Monitor API",
			"version": "1.0.0",
		})
	})

	// Liveness probe - always returns OK if server is running
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Readiness probe - checks if service is ready to receive traffic
	router.GET("/ready", func(c *gin.Context) {
		dbInitMutex.RLock()
		isDBReady := dbInitialized
		dbInitMutex.RUnlock()

		if !isDBReady {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database not connected",
			})
			return
		}

		sqlDB, err := config.DB.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database connection error",
			})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database ping failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}
