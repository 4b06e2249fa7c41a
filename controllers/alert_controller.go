package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/kimtaehoon222/crypto-stock-monitor/services"
)

// AlertController handles alert rule management and event history
type AlertController struct {
	rules   *services.AlertRuleService
	archive *services.AlertArchive
}

// NewAlertController creates a new alert controller. archive may be nil
// when MongoDB is not configured; event history is then empty.
func NewAlertController(rules *services.AlertRuleService, archive *services.AlertArchive) *AlertController {
	return &AlertController{rules: rules, archive: archive}
}

// CreateRule stores a new alert rule
// POST /api/v1/alerts
func (ac *AlertController) CreateRule(c *gin.Context) {
	var rule models.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if rule.AssetID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset_id is required"})
		return
	}

	if err := ac.rules.CreateRule(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": rule})
}

// GetRules lists alert rules for an asset
// GET /api/v1/assets/:id/alerts
func (ac *AlertController) GetRules(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset ID"})
		return
	}

	rules, err := ac.rules.ListRules(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alert rules"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rules})
}

// UpdateRule applies a sparse patch onto an alert rule
// PUT /api/v1/alerts/:id
func (ac *AlertController) UpdateRule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	var patch models.AlertRuleUpdate
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := ac.rules.UpdateRule(uint(id), patch)
	if err != nil {
		if errors.Is(err, services.ErrRuleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert rule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rule})
}

// DeleteRule removes an alert rule
// DELETE /api/v1/alerts/:id
func (ac *AlertController) DeleteRule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	if err := ac.rules.DeleteRule(uint(id)); err != nil {
		if errors.Is(err, services.ErrRuleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert rule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert rule deleted successfully"})
}

// GetEvents returns recently fired alert events for an asset
// GET /api/v1/assets/:id/alerts/events
func (ac *AlertController) GetEvents(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset ID"})
		return
	}

	if ac.archive == nil {
		c.JSON(http.StatusOK, gin.H{"data": []models.AlertEvent{}})
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	events, err := ac.archive.RecentEvents(c.Request.Context(), uint(id), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alert events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}
