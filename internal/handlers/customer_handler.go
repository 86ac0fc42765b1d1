package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/directory"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetCustomers lists patient profiles, newest first. Directory parameters (search, gender,
// bloodGroup, ageGroup, hasConditions, registrationPeriod) narrow the list when present.
func (h *Handler) GetCustomers(c *gin.Context) {
	customers, err := h.Store.ListCustomers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve customers")
		return
	}

	query := c.Request.URL.Query()
	if directory.HasQuery(query) {
		search, filter, err := directory.FromQuery(query)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		customers = directory.Apply(customers, search, filter, h.now())
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

// GetCustomerStats returns aggregates over every patient, ignoring any filter.
func (h *Handler) GetCustomerStats(c *gin.Context) {
	customers, err := h.Store.ListCustomers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve customers")
		return
	}
	c.JSON(http.StatusOK, directory.Summarize(customers, h.now()))
}

// ExportCustomers streams the (optionally filtered) directory as a spreadsheet.
func (h *Handler) ExportCustomers(c *gin.Context) {
	search, filter, err := directory.FromQuery(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customers, err := h.Store.ListCustomers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve customers")
		return
	}
	now := h.now()
	customers = directory.Apply(customers, search, filter, now)

	var buf bytes.Buffer
	if err := directory.WriteXLSX(&buf, customers, now); err != nil {
		respondError(c, err, "Failed to export customers")
		return
	}
	filename := fmt.Sprintf("patients-%s.xlsx", now.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// canSeeCustomer reports whether the caller may read or edit profile p. Customers only
// reach their own profile.
func canSeeCustomer(c *gin.Context, p *models.Customer, roles ...string) bool {
	userID, role := middleware.CurrentUser(c)
	if role == models.RoleCustomer {
		return p.UserID == userID
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	customer, err := h.Store.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to retrieve customer")
		return
	}
	if !canSeeCustomer(c, customer, models.RoleDoctor, models.RoleStaff, models.RoleAdmin) {
		forbidden(c)
		return
	}
	c.JSON(http.StatusOK, customer)
}

type UpdateCustomerRequest struct {
	DateOfBirth       *string  `json:"dateOfBirth"`
	Gender            *string  `json:"gender"`
	BloodGroup        *string  `json:"bloodGroup"`
	Address           *string  `json:"address"`
	MedicalConditions *string  `json:"medicalConditions"`
	Allergies         *string  `json:"allergies"`
	Medications       *string  `json:"medications"`
	InsuranceProvider *string  `json:"insuranceProvider"`
	InsuranceNumber   *string  `json:"insuranceNumber"`
	EmergencyContact  *string  `json:"emergencyContact"`
	HeightCM          *float64 `json:"heightCm" binding:"omitempty,gt=0"`
	WeightKG          *float64 `json:"weightKg" binding:"omitempty,gt=0"`
}

// UpdateCustomer applies a partial update to a medical profile. The owning customer, staff
// and admins may edit it.
func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	customer, err := h.Store.GetCustomer(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to update customer")
		return
	}
	if !canSeeCustomer(c, customer, models.RoleStaff, models.RoleAdmin) {
		forbidden(c)
		return
	}

	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			customer.DateOfBirth = nil
		} else {
			dob, err := parseDate(*req.DateOfBirth)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dateOfBirth, use YYYY-MM-DD"})
				return
			}
			if dob.After(h.now()) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "dateOfBirth cannot be in the future"})
				return
			}
			customer.DateOfBirth = &dob
		}
	}
	setString(&customer.Gender, req.Gender)
	setString(&customer.BloodGroup, req.BloodGroup)
	setString(&customer.Address, req.Address)
	setString(&customer.MedicalConditions, req.MedicalConditions)
	setString(&customer.Allergies, req.Allergies)
	setString(&customer.Medications, req.Medications)
	setString(&customer.InsuranceProvider, req.InsuranceProvider)
	setString(&customer.InsuranceNumber, req.InsuranceNumber)
	setString(&customer.EmergencyContact, req.EmergencyContact)
	if req.HeightCM != nil {
		customer.HeightCM = req.HeightCM
	}
	if req.WeightKG != nil {
		customer.WeightKG = req.WeightKG
	}

	if err := h.Store.UpdateCustomer(ctx, customer); err != nil {
		respondError(c, err, "Failed to update customer")
		return
	}
	c.JSON(http.StatusOK, customer)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
