package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/internal/api/middleware"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// GetRooms lists every room
func (h *Handlers) GetRooms(c *gin.Context) {
	rooms, err := h.home.ListRooms(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, rooms)
}

// GetRoom returns a room addressed by id or name
func (h *Handlers) GetRoom(c *gin.Context) {
	room, err := h.home.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, room)
}

// GetRoomDevices lists the devices assigned to a room
func (h *Handlers) GetRoomDevices(c *gin.Context) {
	devices, err := h.home.RoomDevices(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, devices)
}

// CreateRoom adds a room
func (h *Handlers) CreateRoom(c *gin.Context) {
	var input home.RoomInput
	if !bindJSON(c, &input, false) {
		return
	}

	room, err := h.home.CreateRoom(c.Request.Context(), middleware.Actor(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendCreated(c, room, "Room Created", "")
}

// UpdateRoom renames a room or changes its target temperature
func (h *Handlers) UpdateRoom(c *gin.Context) {
	var upd home.RoomUpdate
	if !bindJSON(c, &upd, false) {
		return
	}

	room, err := h.home.UpdateRoom(c.Request.Context(), middleware.Actor(c), c.Param("id"), upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccessWithToast(c, room, "Room Updated", "")
}

// DeleteRoom removes a room and unassigns its devices
func (h *Handlers) DeleteRoom(c *gin.Context) {
	room, err := h.home.DeleteRoom(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccessWithToast(c, room, "Room Deleted", "")
}

// SetRoomLights switches every light in a room
func (h *Handlers) SetRoomLights(c *gin.Context) {
	var req struct {
		On *bool `json:"on" binding:"required"`
	}
	if !bindJSON(c, &req, false) {
		return
	}

	room, err := h.home.SetAllLights(c.Request.Context(), middleware.Actor(c), c.Param("id"), *req.On)
	if err != nil {
		h.respondError(c, err)
		return
	}

	state := "off"
	if *req.On {
		state = "on"
	}
	utils.SendSuccessWithToast(c, room, fmt.Sprintf("All lights in %s turned %s.", room.Name, state), "")
}
