package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDoctors lists active doctors for any signed-in user.
func (h *Handler) GetDoctors(c *gin.Context) {
	doctors, err := h.Store.ListDoctors(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve doctors")
		return
	}
	c.JSON(http.StatusOK, gin.H{"doctors": doctors})
}
