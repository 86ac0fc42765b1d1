package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
)

// --- CREATE APPOINTMENT (with Notifications) ---
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req struct {
		PatientID *int64 `json:"patientId"`
		DoctorID  *int64 `json:"doctorId"`
		StartTime string `json:"startTime" binding:"required"`
		EndTime   string `json:"endTime" binding:"required"`
		Service   string `json:"service" binding:"required"`
		Notes     string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	startTime, err1 := time.Parse(time.RFC3339, req.StartTime)
	endTime, err2 := time.Parse(time.RFC3339, req.EndTime)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time format, use RFC3339"})
		return
	}
	if !endTime.After(startTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endTime must be after startTime"})
		return
	}

	// Customers book for themselves; staff and admins book on a patient's behalf.
	userID, role := middleware.CurrentUser(c)
	patientID := userID
	switch role {
	case models.RoleCustomer:
	case models.RoleStaff, models.RoleAdmin:
		if req.PatientID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "patientId is required"})
			return
		}
		patientID = *req.PatientID
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Only customers and staff can book appointments."})
		return
	}

	ctx := c.Request.Context()
	patient, err := h.Store.GetUser(ctx, patientID)
	if err != nil || patient.Role != models.RoleCustomer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown patient"})
		return
	}
	if req.DoctorID != nil {
		doctor, err := h.Store.GetUser(ctx, *req.DoctorID)
		if err != nil || doctor.Role != models.RoleDoctor || doctor.Status != models.StatusActive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown doctor"})
			return
		}
	}

	apt := &models.Appointment{
		PatientID: patient.ID,
		DoctorID:  req.DoctorID,
		StartTime: startTime,
		EndTime:   endTime,
		Service:   req.Service,
		Status:    models.AppointmentScheduled,
		Notes:     req.Notes,
	}
	if err := h.Store.CreateAppointment(ctx, apt); err != nil {
		respondError(c, err, "Failed to create appointment")
		return
	}
	apt.PatientName = patient.FullName

	h.NotificationSvc.SendAppointmentSMS(patient, apt)

	c.JSON(http.StatusCreated, apt)
}

// --- GET APPOINTMENTS (with Role-Based Filtering) ---
// Customers only ever see their own appointments. Everyone else sees all of them and may
// narrow by patientId or doctorId.
func (h *Handler) GetAppointments(c *gin.Context) {
	userID, role := middleware.CurrentUser(c)

	filter := store.AppointmentFilter{Status: c.Query("status"), Descending: true}
	if c.Query("sort") == "asc" {
		filter.Descending = false
	}

	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	filter.From, filter.To = from, to

	if role == models.RoleCustomer {
		filter.PatientID = &userID
	} else {
		if filter.PatientID, ok = queryID(c, "patientId"); !ok {
			return
		}
		if filter.DoctorID, ok = queryID(c, "doctorId"); !ok {
			return
		}
	}

	appointments, err := h.Store.ListAppointments(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to retrieve appointments")
		return
	}
	c.JSON(http.StatusOK, appointments)
}

// --- UPDATE APPOINTMENT (Doctor/Staff/Admin Only) ---
func (h *Handler) UpdateAppointment(c *gin.Context) {
	appointmentID, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		StartTime *string `json:"startTime,omitempty"`
		EndTime   *string `json:"endTime,omitempty"`
		Service   *string `json:"service,omitempty"`
		Status    *string `json:"status,omitempty"`
		Notes     *string `json:"notes,omitempty"`
		DoctorID  *int64  `json:"doctorId,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.StartTime == nil && req.EndTime == nil && req.Service == nil && req.Status == nil &&
		req.Notes == nil && req.DoctorID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	ctx := c.Request.Context()
	apt, err := h.Store.GetAppointment(ctx, appointmentID)
	if err != nil {
		respondError(c, err, "Failed to update appointment")
		return
	}

	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time format, use RFC3339"})
			return
		}
		apt.StartTime = t
	}
	if req.EndTime != nil {
		t, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time format, use RFC3339"})
			return
		}
		apt.EndTime = t
	}
	if !apt.EndTime.After(apt.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endTime must be after startTime"})
		return
	}
	if req.Status != nil {
		switch *req.Status {
		case models.AppointmentScheduled, models.AppointmentCompleted, models.AppointmentCancelled:
			apt.Status = *req.Status
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown appointment status"})
			return
		}
	}
	setString(&apt.Service, req.Service)
	setString(&apt.Notes, req.Notes)
	if req.DoctorID != nil {
		doctor, err := h.Store.GetUser(ctx, *req.DoctorID)
		if err != nil || doctor.Role != models.RoleDoctor {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown doctor"})
			return
		}
		apt.DoctorID = req.DoctorID
	}

	if err := h.Store.UpdateAppointment(ctx, apt); err != nil {
		respondError(c, err, "Failed to update appointment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment updated successfully", "appointment": apt})
}

// --- CANCEL APPOINTMENT ---
// Clinic staff may cancel any appointment; a customer only their own.
func (h *Handler) CancelAppointment(c *gin.Context) {
	appointmentID, ok := paramID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	apt, err := h.Store.GetAppointment(ctx, appointmentID)
	if err != nil {
		respondError(c, err, "Failed to cancel appointment")
		return
	}
	userID, role := middleware.CurrentUser(c)
	if role == models.RoleCustomer && apt.PatientID != userID {
		forbidden(c)
		return
	}
	if apt.Status == models.AppointmentCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Appointment is already cancelled"})
		return
	}

	if err := h.Store.SetAppointmentStatus(ctx, appointmentID, models.AppointmentCancelled); err != nil {
		respondError(c, err, "Failed to cancel appointment")
		return
	}
	apt.Status = models.AppointmentCancelled

	// Find patient details for notification
	patient, err := h.Store.GetUser(ctx, apt.PatientID)
	if err == nil {
		h.NotificationSvc.SendAppointmentSMS(patient, apt)
	} else if !errors.Is(err, store.ErrNotFound) {
		middleware.Logger(c).Warn().Err(err).Int64("appointment_id", apt.ID).Msg("cancel: patient lookup failed")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled successfully"})
}

// dateRange reads startDate/endDate query parameters. A date-only end covers its whole day.
func dateRange(c *gin.Context) (from, to *time.Time, ok bool) {
	if s := c.Query("startDate"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid startDate, use YYYY-MM-DD"})
			return nil, nil, false
		}
		from = &t
	}
	if s := c.Query("endDate"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endDate, use YYYY-MM-DD"})
			return nil, nil, false
		}
		if len(s) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = &t
	}
	return from, to, true
}

// queryID reads an optional numeric query parameter.
func queryID(c *gin.Context, key string) (*int64, bool) {
	s := c.Query(key)
	if s == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key})
		return nil, false
	}
	return &id, true
}
