package models

import "time"

const (
	RoleAdmin    = "admin"
	RoleDoctor   = "doctor"
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt hash, hidden from JSON responses
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"` // Optional, can be empty
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the account is protected from status changes and deletion.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the four account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDoctor, RoleCustomer, RoleStaff:
		return true
	}
	return false
}
