package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/kimtaehoon222/crypto-stock-monitor/services"
)

// AssetController handles asset registry requests
type AssetController struct {
	assets *services.AssetService
}

// NewAssetController creates a new asset controller
func NewAssetController(assets *services.AssetService) *AssetController {
	return &AssetController{assets: assets}
}

// GetAssets returns the list of active assets with filtering and pagination
// GET /api/v1/assets
func (ac *AssetController) GetAssets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	filter := services.AssetFilter{
		AssetType:    c.Query("asset_type"),
		ExchangeCode: c.Query("exchange_code"),
		Search:       c.Query("search"),
		Page:         page,
		Limit:        limit,
	}

	assets, total, err := ac.assets.ListAssets(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": assets,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetAsset returns a single asset by ID
// GET /api/v1/assets/:id
func (ac *AssetController) GetAsset(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset ID"})
		return
	}

	asset, err := ac.assets.GetAsset(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch asset"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": asset})
}

// CreateAsset registers a new asset
// POST /api/v1/assets
func (ac *AssetController) CreateAsset(c *gin.Context) {
	var asset models.Asset
	if err := c.ShouldBindJSON(&asset); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ac.assets.CreateAsset(&asset); err != nil {
		if errors.Is(err, services.ErrDuplicateAsset) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": asset})
}

// UpdateAsset applies a sparse patch onto an asset
// PUT /api/v1/assets/:id
func (ac *AssetController) UpdateAsset(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset ID"})
		return
	}

	var patch models.AssetUpdate
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asset, err := ac.assets.UpdateAsset(uint(id), patch)
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": asset})
}

// DeleteAsset deactivates an asset (soft delete)
// DELETE /api/v1/assets/:id
func (ac *AssetController) DeleteAsset(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset ID"})
		return
	}

	if err := ac.assets.DeactivateAsset(uint(id)); err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate asset"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Asset deactivated successfully"})
}

// GetAssetTypes returns the asset-type lookup table
// GET /api/v1/assets/types
func (ac *AssetController) GetAssetTypes(c *gin.Context) {
	types, err := ac.assets.ListAssetTypes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch asset types"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": types})
}

// GetExchanges returns active exchanges, optionally filtered by asset type
// GET /api/v1/exchanges
func (ac *AssetController) GetExchanges(c *gin.Context) {
	exchanges, err := ac.assets.ListExchanges(c.Query("asset_type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch exchanges"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": exchanges})
}
