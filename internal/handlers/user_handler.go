package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/models"
)

// GetUsers lists accounts, optionally narrowed with ?role=.
func (h *Handler) GetUsers(c *gin.Context) {
	role := c.Query("role")
	if role != "" && !models.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}
	users, err := h.Store.ListUsers(c.Request.Context(), role)
	if err != nil {
		respondError(c, err, "Failed to retrieve users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// SetUserStatus suspends or reactivates an account. Admin accounts are immutable.
func (h *Handler) SetUserStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required,oneof=active suspended"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or suspended"})
		return
	}

	if err := h.Store.SetUserStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err, "Failed to update user status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User status updated", "status": req.Status})
}

// DeleteUser removes an account and everything attached to it. Admin accounts are immutable.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
