package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/internal/websocket"
	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// WebSocketHandler upgrades the connection and joins the change feed
func (h *Handlers) WebSocketHandler() gin.HandlerFunc {
	if h.hub == nil {
		return func(c *gin.Context) {
			utils.SendError(c, http.StatusServiceUnavailable, "Live updates are not available.")
		}
	}
	return websocket.HandleWebSocketGin(h.hub)
}

// GetWebSocketStats returns WebSocket statistics
func (h *Handlers) GetWebSocketStats(c *gin.Context) {
	if h.hub == nil {
		utils.SendSuccess(c, &websocket.HubStats{})
		return
	}
	utils.SendSuccess(c, h.hub.GetStats())
}
