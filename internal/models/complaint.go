package models

import "time"

const (
	ComplaintOpen     = "open"
	ComplaintInReview = "in_review"
	ComplaintResolved = "resolved"
)

// Complaint is a row of feedback_complaints filed by a customer.
type Complaint struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	Category   string    `json:"category"` // "complaint" or "feedback"
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ComplaintFeedback is a staff or admin response stored in complaint_feedback.
type ComplaintFeedback struct {
	ID          int64     `json:"id"`
	ComplaintID int64     `json:"complaintId"`
	ResponderID int64     `json:"responderId"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}
