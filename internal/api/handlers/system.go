package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// GetSystemSnapshot returns host resource usage and household statistics
func (h *Handlers) GetSystemSnapshot(c *gin.Context) {
	if h.system == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "System monitoring is not available.")
		return
	}

	snapshot, err := h.system.Snapshot(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.recordResources(snapshot.CPU.Usage, snapshot.Memory.UsedPercent, snapshot.Disk.UsedPercent)
	utils.SendSuccess(c, snapshot)
}

func (h *Handlers) recordResources(cpu, memory, disk float64) {
	if h.metrics != nil {
		h.metrics.RecordSystemResource(cpu, memory, disk)
	}
}
