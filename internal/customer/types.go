package customer

import (
	"errors"
	"time"
)

// Status represents a customer record's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// ValidStatuses is the set of accepted customer statuses.
var ValidStatuses = []Status{StatusActive, StatusInactive, StatusSuspended}

// IsValidStatus returns true if the status is one of the accepted values.
func IsValidStatus(s Status) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Customer represents a customer record.
// CustomerCode is assigned at creation and never changes.
type Customer struct {
	ID           string    `json:"id"`
	CustomerCode string    `json:"customer_code"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SearchFilter holds the optional criteria for advanced search.
// Zero-valued fields are not applied.
type SearchFilter struct {
	FullName string
	Email    string
	Status   Status
}

// Sentinel errors for customer operations.
var (
	ErrNotFound   = errors.New("customer not found")
	ErrCodeExists = errors.New("customer code already exists")
	ErrEmailInUse = errors.New("customer email already in use")
)
