package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
)

func (h *Handler) CreateComplaint(c *gin.Context) {
	var req struct {
		Category string `json:"category" binding:"omitempty,oneof=complaint feedback"`
		Subject  string `json:"subject" binding:"required"`
		Message  string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.CurrentUser(c)
	complaint := &models.Complaint{
		CustomerID: userID,
		Category:   req.Category,
		Subject:    req.Subject,
		Message:    req.Message,
	}
	if err := h.Store.CreateComplaint(c.Request.Context(), complaint); err != nil {
		respondError(c, err, "Failed to submit complaint")
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

// GetComplaints shows customers their own complaints; staff and admins see every one.
func (h *Handler) GetComplaints(c *gin.Context) {
	userID, role := middleware.CurrentUser(c)
	var owner *int64
	switch role {
	case models.RoleCustomer:
		owner = &userID
	case models.RoleStaff, models.RoleAdmin:
	default:
		forbidden(c)
		return
	}
	complaints, err := h.Store.ListComplaints(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err, "Failed to retrieve complaints")
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

func (h *Handler) GetComplaintFeedback(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	complaint, err := h.Store.GetComplaint(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to retrieve feedback")
		return
	}
	userID, role := middleware.CurrentUser(c)
	switch role {
	case models.RoleStaff, models.RoleAdmin:
	case models.RoleCustomer:
		if complaint.CustomerID != userID {
			forbidden(c)
			return
		}
	default:
		forbidden(c)
		return
	}

	feedback, err := h.Store.ListComplaintFeedback(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to retrieve feedback")
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": complaint, "feedback": feedback})
}

// AddComplaintFeedback records a staff response and moves the complaint to the given
// status, in_review by default.
func (h *Handler) AddComplaintFeedback(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
		Status  string `json:"status" binding:"omitempty,oneof=open in_review resolved"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status == "" {
		req.Status = models.ComplaintInReview
	}

	userID, _ := middleware.CurrentUser(c)
	fb := &models.ComplaintFeedback{ComplaintID: id, ResponderID: userID, Message: req.Message}
	if err := h.Store.AddComplaintFeedback(c.Request.Context(), fb, req.Status); err != nil {
		respondError(c, err, "Failed to add feedback")
		return
	}
	c.JSON(http.StatusCreated, fb)
}
