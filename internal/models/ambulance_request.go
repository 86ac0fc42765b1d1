package models

import "time"

const (
	AmbulancePending    = "pending"
	AmbulanceDispatched = "dispatched"
	AmbulanceCompleted  = "completed"
	AmbulanceCancelled  = "cancelled"
)

type AmbulanceRequest struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customerId"` // user id of the requester
	PickupAddress string    `json:"pickupAddress"`
	ContactPhone  string    `json:"contactPhone"`
	Reason        string    `json:"reason"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ValidAmbulanceStatus reports whether s is a known ambulance request status.
func ValidAmbulanceStatus(s string) bool {
	switch s {
	case AmbulancePending, AmbulanceDispatched, AmbulanceCompleted, AmbulanceCancelled:
		return true
	}
	return false
}
