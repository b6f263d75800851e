// internal/repository/postgres/balance_pg.go
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

// BalanceRepository implements repository.BalanceRepository for PostgreSQL.
type BalanceRepository struct{}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository() repository.BalanceRepository {
	return &BalanceRepository{}
}

// GetBalanceByUserID retrieves the balance row of a user using the provided DBExecutor.
func (r *BalanceRepository) GetBalanceByUserID(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Balance, error) {
	var balance domain.Balance
	query := `SELECT id, user_id, balance, created_at, updated_at FROM balances WHERE user_id = $1`
	err := q.GetContext(ctx, &balance, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get balance for user %d: %w", userID, err)
	}
	return &balance, nil
}

// UpsertBalance stores the absolute balance of a user and sets balance.ID.
// Callers must hold the user's lock; the row is written as computed, not incremented.
func (r *BalanceRepository) UpsertBalance(ctx context.Context, q repository.DBExecutor, balance *domain.Balance) error {
	query := `INSERT INTO balances (user_id, balance, created_at, updated_at)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at
              RETURNING id`
	err := q.QueryRowContext(ctx, query, balance.UserID, balance.Amount, balance.CreatedAt, balance.UpdatedAt).Scan(&balance.ID)
	if err != nil {
		return fmt.Errorf("failed to save balance for user %d: %w", balance.UserID, err)
	}
	return nil
}
