// internal/repository/user_repo.go
package repository

import (
	"context"

	"balance-ledger/internal/domain"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// CreateUser inserts the user unless its ID already exists; created reports whether a row was written.
	CreateUser(ctx context.Context, q DBExecutor, user *domain.User) (created bool, err error)
	// GetUserByID retrieves a user by their ID using the provided DBExecutor.
	GetUserByID(ctx context.Context, q DBExecutor, id int64) (*domain.User, error)
}
