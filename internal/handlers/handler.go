package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/registration"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

// Handler holds the dependencies shared by every route. Handlers are methods on it.
type Handler struct {
	Store           *store.Store
	Registration    *registration.Service
	NotificationSvc *services.NotificationService
	Hasher          *utils.PasswordHasher
	Now             func() time.Time
}

func NewHandler(st *store.Store, reg *registration.Service, notificationSvc *services.NotificationService, hasher *utils.PasswordHasher) *Handler {
	return &Handler{
		Store:           st,
		Registration:    reg,
		NotificationSvc: notificationSvc,
		Hasher:          hasher,
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now()
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// paramID parses the :id path parameter, answering 400 when it is not a positive integer.
func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
