package models

import "time"

type Doctor struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"userId"`
	FullName          string    `json:"fullName"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Specialization    string    `json:"specialization"`
	LicenseNumber     string    `json:"licenseNumber"`
	Qualification     string    `json:"qualification"`
	YearsOfExperience int       `json:"yearsOfExperience"`
	ConsultationFee   float64   `json:"consultationFee"`
	AvailableDays     string    `json:"availableDays"`  // e.g. "Mon,Wed,Fri"
	AvailableHours    string    `json:"availableHours"` // e.g. "09:00-17:00"
	Bio               string    `json:"bio"`
	CreatedAt         time.Time `json:"createdAt"`
}
