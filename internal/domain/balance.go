// internal/domain/balance.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// Balance is the current amount owned by a user. Exactly one per user, never negative.
type Balance struct {
	ID        int64           `db:"id" json:"-"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Amount    decimal.Decimal `db:"balance" json:"balance"` // NUMERIC(15, 2) in DB
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// NewBalance creates a zero Balance for userID.
func NewBalance(userID int64) *Balance {
	now := time.Now().UTC()
	return &Balance{
		UserID:    userID,
		Amount:    decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit adds amount and touches UpdatedAt.
func (b *Balance) Credit(amount decimal.Decimal) {
	b.Amount = b.Amount.Add(amount)
	b.UpdatedAt = time.Now().UTC()
}

// Debit subtracts amount, refusing to go below zero.
func (b *Balance) Debit(amount decimal.Decimal) bool {
	if b.Amount.LessThan(amount) {
		return false
	}
	b.Amount = b.Amount.Sub(amount)
	b.UpdatedAt = time.Now().UTC()
	return true
}

// TransferResult holds the state left behind by a committed transfer.
type TransferResult struct {
	From *Balance
	To   *Balance
	Out  *Transaction
	In   *Transaction
}
