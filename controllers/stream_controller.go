package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/kimtaehoon222/crypto-stock-monitor/services"
)

// StreamController exposes the realtime WebSocket stream
type StreamController struct {
	hub *services.StreamHub
}

// NewStreamController creates a new stream controller
func NewStreamController(hub *services.StreamHub) *StreamController {
	return &StreamController{hub: hub}
}

// Stream upgrades the request to a WebSocket subscription
// GET /ws
func (sc *StreamController) Stream(c *gin.Context) {
	sc.hub.HandleWebSocket(c.Writer, c.Request)
}
