package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/internal/api/middleware"
	"github.com/frostdev-ops/home-panel-go/internal/core/auth"
	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// Signup registers a user-role account
func (h *Handlers) Signup(c *gin.Context) {
	var req auth.SignupRequest
	if !bindJSON(c, &req, false) {
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.SendCreated(c, user, "Account Created!", "You've been successfully signed up. Please log in.")
}

// Login checks credentials and returns a session token
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Email and password are required.")
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.SendSuccessWithToast(c, resp, "Login Successful", fmt.Sprintf("Welcome back, %s!", resp.User.Name))
}

// Logout acknowledges a logout; tokens are dropped by the client
func (h *Handlers) Logout(c *gin.Context) {
	utils.SendSuccessWithToast(c, nil, "Logged Out", "You have been successfully logged out.")
}

// GetProfile returns the authenticated user
func (h *Handlers) GetProfile(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	utils.SendSuccess(c, user)
}

// UpdatePassword changes the caller's password
func (h *Handlers) UpdatePassword(c *gin.Context) {
	var req auth.ChangePasswordRequest
	if !bindJSON(c, &req, false) {
		return
	}

	user, _ := middleware.CurrentUser(c)
	if err := h.auth.ChangePassword(c.Request.Context(), user.ID, &req); err != nil {
		h.respondError(c, err)
		return
	}

	utils.SendSuccessWithToast(c, nil, "Password Updated", "Your password has been changed.")
}

// GetUsers lists every account
func (h *Handlers) GetUsers(c *gin.Context) {
	users, err := h.home.ListUsers(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SendSuccess(c, users)
}

// UpdateUserRole sets a user's role
func (h *Handlers) UpdateUserRole(c *gin.Context) {
	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if !bindJSON(c, &req, false) {
		return
	}

	user, err := h.home.SetUserRole(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.SendSuccessWithToast(c, user, "User Role Updated", fmt.Sprintf("%s is now %s.", user.Name, user.Role))
}

// DeleteUser removes an account
func (h *Handlers) DeleteUser(c *gin.Context) {
	user, err := h.home.DeleteUser(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.SendSuccessWithToast(c, user, "User Deleted", fmt.Sprintf("%s has been removed.", user.Name))
}
