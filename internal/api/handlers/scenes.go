package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/internal/api/middleware"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// GetScenes lists every scene
func (h *Handlers) GetScenes(c *gin.Context) {
	scenes, err := h.home.ListScenes(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, scenes)
}

// GetScene returns one scene
func (h *Handlers) GetScene(c *gin.Context) {
	scene, err := h.home.GetScene(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, scene)
}

// CreateScene adds a scene
func (h *Handlers) CreateScene(c *gin.Context) {
	var input home.SceneInput
	if !bindJSON(c, &input, false) {
		return
	}

	scene, err := h.home.CreateScene(c.Request.Context(), middleware.Actor(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendCreated(c, scene, "Scene Created", "")
}

// UpdateScene applies a partial update
func (h *Handlers) UpdateScene(c *gin.Context) {
	var upd home.SceneUpdate
	if !bindJSON(c, &upd, false) {
		return
	}

	scene, err := h.home.UpdateScene(c.Request.Context(), middleware.Actor(c), c.Param("id"), upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccessWithToast(c, scene, "Scene Updated", "")
}

// DeleteScene removes a scene
func (h *Handlers) DeleteScene(c *gin.Context) {
	scene, err := h.home.DeleteScene(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccessWithToast(c, scene, "Scene Deleted", "")
}

// ActivateScene activates the scene stored under :id
func (h *Handlers) ActivateScene(c *gin.Context) {
	result, err := h.home.ActivateSceneByID(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	sendSceneActivated(c, result)
}

// ActivateSceneByName activates a preset by name
func (h *Handlers) ActivateSceneByName(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Scene name is required.")
		return
	}

	result, err := h.home.ActivateScene(c.Request.Context(), middleware.Actor(c), req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	sendSceneActivated(c, result)
}

func sendSceneActivated(c *gin.Context, result *home.SceneResult) {
	utils.SendSuccessWithToast(c, result, "Scene Activated", fmt.Sprintf("The %q scene has been activated.", result.Scene))
}
