package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/kimtaehoon222/crypto-stock-monitor/services"
)

// PriceController handles tick ingestion, price history and stats requests
type PriceController struct {
	store  services.PriceStore
	stats  *services.StatsService
	cache  *services.StatsCache
	assets *services.AssetService
	stream *services.StreamHub
}

// NewPriceController creates a new price controller. cache and stream may
// be nil when those features are disabled.
func NewPriceController(
	store services.PriceStore,
	stats *services.StatsService,
	cache *services.StatsCache,
	assets *services.AssetService,
	stream *services.StreamHub,
) *PriceController {
	return &PriceController{
		store:  store,
		stats:  stats,
		cache:  cache,
		assets: assets,
		stream: stream,
	}
}

// IngestTick stores a new price tick
// POST /api/v1/prices
func (pc *PriceController) IngestTick(c *gin.Context) {
	var tick models.PriceTick
	if err := c.ShouldBindJSON(&tick); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if tick.AssetID == 0 || tick.Timestamp.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset_id and timestamp are required"})
		return
	}

	if err := pc.store.Append(&tick); err != nil {
		if errors.Is(err, models.ErrInvalidTick) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tick: price must be positive and high >= low"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store tick"})
		return
	}

	pc.cache.Invalidate(c.Request.Context(), tick.AssetID)
	if pc.stream != nil {
		pc.stream.BroadcastTick(&tick)
	}

	c.JSON(http.StatusCreated, gin.H{"data": tick})
}

// GetPriceHistory returns ticks for an asset in a time range. An unknown
// asset yields an empty list, not an error.
// GET /api/v1/assets/:id/prices
func (pc *PriceController) GetPriceHistory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset ID"})
		return
	}

	now := time.Now().UTC()
	from, err := parseTimeQuery(c, "from", now.Add(-24*time.Hour))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' timestamp, expected RFC3339"})
		return
	}
	to, err := parseTimeQuery(c, "to", now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' timestamp, expected RFC3339"})
		return
	}

	ticks, err := pc.store.Query(uint(id), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch price history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": ticks,
		"from": from,
		"to":   to,
	})
}

// GetAssetStats returns the rolling-window statistics for an asset
// GET /api/v1/assets/:id/stats
func (pc *PriceController) GetAssetStats(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset ID"})
		return
	}

	asset, err := pc.assets.GetAsset(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch asset"})
		return
	}

	now, err := parseTimeQuery(c, "now", time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'now' timestamp, expected RFC3339"})
		return
	}

	// The cache only serves the default reference time; explicit "now"
	// queries always recompute.
	useCache := c.Query("now") == ""
	if useCache {
		if cached := pc.cache.Get(c.Request.Context(), asset.ID); cached != nil {
			c.JSON(http.StatusOK, gin.H{"data": cached})
			return
		}
	}

	stats, err := pc.stats.Compute(asset.ID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	stats.Symbol = asset.Symbol
	stats.Name = asset.Name

	if useCache {
		pc.cache.Set(c.Request.Context(), stats)
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// parseTimeQuery reads an RFC3339 query parameter, falling back to a default
func parseTimeQuery(c *gin.Context, key string, defaultValue time.Time) (time.Time, error) {
	value := c.Query(key)
	if value == "" {
		return defaultValue, nil
	}
	return time.Parse(time.RFC3339, value)
}
