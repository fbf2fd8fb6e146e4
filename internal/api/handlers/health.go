package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/pkg/utils"
	"github.com/frostdev-ops/home-panel-go/pkg/version"
)

// Health returns the health status of the service
func (h *Handlers) Health(c *gin.Context) {
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "home-panel",
		"version":   version.GetVersion(),
		"backend":   h.backend,
	}

	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.log.WithError(err).Warn("Health check: store unreachable")
			health["status"] = "degraded"
			health["store_error"] = err.Error()
			utils.SendErrorWithDetails(c, http.StatusServiceUnavailable, "The home database is unavailable.", health)
			return
		}
	}
	if h.hub != nil {
		health["websocket_clients"] = h.hub.GetClientCount()
	}

	utils.SendSuccess(c, health)
}
