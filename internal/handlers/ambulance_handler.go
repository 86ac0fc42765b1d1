package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
)

func (h *Handler) CreateAmbulanceRequest(c *gin.Context) {
	var req struct {
		PickupAddress string `json:"pickupAddress" binding:"required"`
		ContactPhone  string `json:"contactPhone"`
		Reason        string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.CurrentUser(c)
	r := &models.AmbulanceRequest{
		CustomerID:    userID,
		PickupAddress: req.PickupAddress,
		ContactPhone:  req.ContactPhone,
		Reason:        req.Reason,
	}
	if err := h.Store.CreateAmbulanceRequest(c.Request.Context(), r); err != nil {
		respondError(c, err, "Failed to create ambulance request")
		return
	}
	c.JSON(http.StatusCreated, r)
}

// GetAmbulanceRequests shows customers their own requests and clinic staff all of them.
func (h *Handler) GetAmbulanceRequests(c *gin.Context) {
	userID, role := middleware.CurrentUser(c)
	var owner *int64
	if role == models.RoleCustomer {
		owner = &userID
	}
	requests, err := h.Store.ListAmbulanceRequests(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err, "Failed to retrieve ambulance requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *Handler) SetAmbulanceStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !models.ValidAmbulanceStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of pending, dispatched, completed, cancelled"})
		return
	}

	ctx := c.Request.Context()
	if err := h.Store.SetAmbulanceStatus(ctx, id, req.Status); err != nil {
		respondError(c, err, "Failed to update ambulance request")
		return
	}
	r, err := h.Store.GetAmbulanceRequest(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to update ambulance request")
		return
	}
	c.JSON(http.StatusOK, r)
}
