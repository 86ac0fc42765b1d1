package models

import "time"

const (
	AppointmentScheduled = "Scheduled"
	AppointmentCompleted = "Completed"
	AppointmentCancelled = "Cancelled"
)

type Appointment struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"patientId"` // user id of the customer
	PatientName string    `json:"patientName"`
	DoctorID    *int64    `json:"doctorId,omitempty"` // user id of the doctor
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Service     string    `json:"service"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
}
