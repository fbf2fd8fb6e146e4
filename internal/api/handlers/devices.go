package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/internal/api/middleware"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// toggleRequest optionally forces the new state
type toggleRequest struct {
	Active *bool `json:"active"`
}

// GetDevices lists every device
func (h *Handlers) GetDevices(c *gin.Context) {
	devices, err := h.home.ListDevices(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, devices)
}

// GetDevice returns one device
func (h *Handlers) GetDevice(c *gin.Context) {
	device, err := h.home.GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, device)
}

// CreateDevice adds a device
func (h *Handlers) CreateDevice(c *gin.Context) {
	var input home.DeviceInput
	if !bindJSON(c, &input, false) {
		return
	}

	device, err := h.home.CreateDevice(c.Request.Context(), middleware.Actor(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendCreated(c, device, "Device Created", "")
}

// UpdateDevice applies a partial update
func (h *Handlers) UpdateDevice(c *gin.Context) {
	var upd home.DeviceUpdate
	if !bindJSON(c, &upd, false) {
		return
	}

	device, err := h.home.UpdateDevice(c.Request.Context(), middleware.Actor(c), c.Param("id"), upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccessWithToast(c, device, "Device Updated", "")
}

// DeleteDevice removes a device
func (h *Handlers) DeleteDevice(c *gin.Context) {
	device, err := h.home.DeleteDevice(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccessWithToast(c, device, "Device Deleted", "")
}

// ToggleDevice flips a device, or sets it when the body carries "active"
func (h *Handlers) ToggleDevice(c *gin.Context) {
	var req toggleRequest
	if !bindJSON(c, &req, true) {
		return
	}

	device, err := h.home.ToggleDevice(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.Active)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, device)
}
