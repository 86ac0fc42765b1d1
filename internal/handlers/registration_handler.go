package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/middleware"
)

// GetRegistrations lists submissions, optionally narrowed with ?status=.
func (h *Handler) GetRegistrations(c *gin.Context) {
	regs, err := h.Registration.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err, "Failed to retrieve registrations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrations": regs})
}

func (h *Handler) GetRegistration(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	reg, err := h.Registration.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to retrieve registration")
		return
	}
	c.JSON(http.StatusOK, reg)
}

type decisionRequest struct {
	Notes string `json:"notes"`
}

// ApproveRegistration turns a pending submission into an active account.
func (h *Handler) ApproveRegistration(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req decisionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	reviewerID, _ := middleware.CurrentUser(c)
	userID, err := h.Registration.Approve(c.Request.Context(), id, reviewerID, req.Notes)
	if err != nil {
		respondError(c, err, "Failed to approve registration")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Registration approved", "userId": userID})
}

// RejectRegistration closes a submission. A reason in notes is required.
func (h *Handler) RejectRegistration(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	reviewerID, _ := middleware.CurrentUser(c)
	if err := h.Registration.Reject(c.Request.Context(), id, reviewerID, req.Notes); err != nil {
		respondError(c, err, "Failed to reject registration")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Registration rejected"})
}
