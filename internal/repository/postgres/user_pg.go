// internal/repository/postgres/user_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/repository"
	"balance-ledger/internal/util"
)

// UserRepository implements repository.UserRepository for PostgreSQL.
type UserRepository struct{}

// NewUserRepository creates a new UserRepository.
// Methods receive the DBExecutor so the same repository serves both plain reads and transactions.
func NewUserRepository() repository.UserRepository {
	return &UserRepository{}
}

// CreateUser inserts a user unless the ID is already taken.
func (r *UserRepository) CreateUser(ctx context.Context, q repository.DBExecutor, user *domain.User) (bool, error) {
	query := `INSERT INTO users (id, is_system_created, created_at, updated_at)
              VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`
	result, err := q.ExecContext(ctx, query, user.ID, user.IsSystemCreated, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create user %d: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected after creating user %d: %w", user.ID, err)
	}
	return rowsAffected == 1, nil
}

// GetUserByID retrieves a user by their ID using the provided DBExecutor.
func (r *UserRepository) GetUserByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, is_system_created, created_at, updated_at FROM users WHERE id = $1`
	err := q.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID %d: %w", id, err)
	}
	return &user, nil
}
