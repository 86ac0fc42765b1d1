package models

import "time"

// Customer is the medical profile attached to a user with the customer role.
// FullName, Email and Phone are read from the owning user row.
type Customer struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"userId"`
	FullName          string     `json:"fullName"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty"`
	Gender            string     `json:"gender"`     // "male", "female", "other"
	BloodGroup        string     `json:"bloodGroup"` // "A+", "O-", ...
	Address           string     `json:"address"`
	MedicalConditions string     `json:"medicalConditions"`
	Allergies         string     `json:"allergies"`
	Medications       string     `json:"medications"`
	InsuranceProvider string     `json:"insuranceProvider"`
	InsuranceNumber   string     `json:"insuranceNumber"`
	EmergencyContact  string     `json:"emergencyContact"`
	HeightCM          *float64   `json:"heightCm,omitempty"`
	WeightKG          *float64   `json:"weightKg,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
