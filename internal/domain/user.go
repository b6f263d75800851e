// internal/domain/user.go
package domain

import "time"

// User represents a ledger account holder.
type User struct {
	ID              int64     `db:"id" json:"id"`                               // Supplied by the caller, never generated
	IsSystemCreated bool      `db:"is_system_created" json:"is_system_created"` // True when the ledger auto-provisioned it
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// NewSystemUser creates a placeholder User flagged as created by the ledger.
func NewSystemUser(id int64) *User {
	now := time.Now().UTC()
	return &User{
		ID:              id,
		IsSystemCreated: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
