// internal/repository/balance_repo.go
package repository

import (
	"context"

	"balance-ledger/internal/domain"
)

// BalanceRepository defines the interface for balance data operations.
type BalanceRepository interface {
	// GetBalanceByUserID retrieves the balance row of a user; util.ErrNotFound when absent.
	GetBalanceByUserID(ctx context.Context, q DBExecutor, userID int64) (*domain.Balance, error)
	// UpsertBalance writes the absolute balance of a user, creating the row if needed.
	UpsertBalance(ctx context.Context, q DBExecutor, balance *domain.Balance) error
}
