package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/internal/api/middleware"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// GetAutomations lists every automation
func (h *Handlers) GetAutomations(c *gin.Context) {
	automations, err := h.home.ListAutomations(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, automations)
}

// GetAutomation returns one automation
func (h *Handlers) GetAutomation(c *gin.Context) {
	automation, err := h.home.GetAutomation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, automation)
}

// CreateAutomation adds an automation
func (h *Handlers) CreateAutomation(c *gin.Context) {
	var input home.AutomationInput
	if !bindJSON(c, &input, false) {
		return
	}

	automation, err := h.home.CreateAutomation(c.Request.Context(), middleware.Actor(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendCreated(c, automation, "Automation Created", "")
}

// UpdateAutomation applies a partial update
func (h *Handlers) UpdateAutomation(c *gin.Context) {
	var upd home.AutomationUpdate
	if !bindJSON(c, &upd, false) {
		return
	}

	automation, err := h.home.UpdateAutomation(c.Request.Context(), middleware.Actor(c), c.Param("id"), upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccessWithToast(c, automation, "Automation Updated", "")
}

// DeleteAutomation removes an automation
func (h *Handlers) DeleteAutomation(c *gin.Context) {
	automation, err := h.home.DeleteAutomation(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccessWithToast(c, automation, "Automation Deleted", "")
}

// ToggleAutomation flips an automation, or sets it when the body carries "active"
func (h *Handlers) ToggleAutomation(c *gin.Context) {
	var req toggleRequest
	if !bindJSON(c, &req, true) {
		return
	}

	automation, err := h.home.ToggleAutomation(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.Active)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, automation)
}
