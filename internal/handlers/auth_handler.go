package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/registration"
	"github.com/harentsoaR/clinic-api/internal/store"
)

type RegisterCustomerRequest struct {
	Username    string `json:"username" binding:"required"`
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	BloodGroup  string `json:"bloodGroup"`
	Address     string `json:"address"`
}

// RegisterCustomer creates a patient account and its empty medical profile together.
func (h *Handler) RegisterCustomer(c *gin.Context) {
	var req RegisterCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var dob *time.Time
	if req.DateOfBirth != "" {
		t, err := parseDate(req.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dateOfBirth, use YYYY-MM-DD"})
			return
		}
		dob = &t
	}

	hashedPassword, err := h.Hasher.HashPassword(req.Password)
	if err != nil {
		respondError(c, err, "Failed to hash password")
		return
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hashedPassword,
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Role:     models.RoleCustomer,
		Status:   models.StatusActive,
	}
	profile := &models.Customer{
		DateOfBirth: dob,
		Gender:      req.Gender,
		BloodGroup:  req.BloodGroup,
		Address:     req.Address,
	}

	ctx := c.Request.Context()
	err = h.Store.WithTx(ctx, func(tx *store.Store) error {
		taken, err := tx.IdentityTaken(ctx, user.Username, user.Email, user.Phone)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrDuplicateIdentity
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.CreateCustomer(ctx, profile)
	})
	if err != nil {
		respondError(c, err, "Failed to create user")
		return
	}

	profile.FullName, profile.Email, profile.Phone = user.FullName, user.Email, user.Phone
	c.JSON(http.StatusCreated, gin.H{"user": user, "customer": profile})
}

type SubmitRegistrationRequest struct {
	Username          string  `json:"username" binding:"required"`
	Email             string  `json:"email" binding:"required,email"`
	Password          string  `json:"password" binding:"required,min=6"`
	Role              string  `json:"role" binding:"required,oneof=doctor staff"`
	FullName          string  `json:"fullName" binding:"required"`
	Phone             string  `json:"phone"`
	Specialization    string  `json:"specialization"`
	LicenseNumber     string  `json:"licenseNumber"`
	Qualification     string  `json:"qualification"`
	YearsOfExperience int     `json:"yearsOfExperience" binding:"gte=0"`
	ConsultationFee   float64 `json:"consultationFee" binding:"gte=0"`
	AvailableDays     string  `json:"availableDays"`
	AvailableHours    string  `json:"availableHours"`
	Department        string  `json:"department"`
	Position          string  `json:"position"`
}

// SubmitRegistration queues a doctor or staff signup for admin review.
func (h *Handler) SubmitRegistration(c *gin.Context) {
	var req SubmitRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.Registration.Submit(c.Request.Context(), registration.Submission(req))
	if err != nil {
		respondError(c, err, "Failed to submit registration")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":      "Registration submitted and awaiting admin approval",
		"registration": reg,
	})
}

// GetCurrentUser returns the caller's account along with their role profile, if any.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, role := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	user, err := h.Store.GetUser(ctx, userID)
	if err != nil {
		respondError(c, err, "Failed to load profile")
		return
	}

	resp := gin.H{"user": user}
	switch role {
	case models.RoleCustomer:
		profile, err := h.Store.GetCustomerByUser(ctx, userID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			respondError(c, err, "Failed to load profile")
			return
		}
		resp["customer"] = profile
	case models.RoleDoctor:
		profile, err := h.Store.GetDoctorByUser(ctx, userID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			respondError(c, err, "Failed to load profile")
			return
		}
		resp["doctor"] = profile
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateCurrentUser lets a user change their own display name and phone.
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	var req struct {
		FullName *string `json:"fullName"`
		Phone    *string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.FullName == nil && req.Phone == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No update fields provided"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Store.GetUser(ctx, userID)
	if err != nil {
		respondError(c, err, "Failed to update user profile")
		return
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fullName cannot be empty"})
			return
		}
		user.FullName = name
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}

	if err := h.Store.UpdateUserProfile(ctx, userID, user.FullName, user.Phone); err != nil {
		respondError(c, err, "Failed to update user profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}
