package models

import "time"

const (
	RegistrationPending  = "pending"
	RegistrationApproved = "approved"
	RegistrationRejected = "rejected"
)

// PendingRegistration is a doctor or staff signup waiting for an admin decision.
// The password is stored already hashed and is copied as-is onto the approved user.
type PendingRegistration struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	Role              string    `json:"role"` // "doctor" or "staff"
	FullName          string    `json:"fullName"`
	Phone             string    `json:"phone"`
	Specialization    string    `json:"specialization"`
	LicenseNumber     string    `json:"licenseNumber"`
	Qualification     string    `json:"qualification"`
	YearsOfExperience int       `json:"yearsOfExperience"`
	ConsultationFee   float64   `json:"consultationFee"`
	AvailableDays     string    `json:"availableDays"`
	AvailableHours    string    `json:"availableHours"`
	Department        string    `json:"department"`
	Position          string    `json:"position"`
	Status            string    `json:"status"`
	ApprovedBy        *int64    `json:"approvedBy,omitempty"`
	AdminNotes        string    `json:"adminNotes"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
