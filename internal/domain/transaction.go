// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// TransactionType defines the kind of a balance-affecting event.
type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "deposit"
	TransactionTypeWithdraw    TransactionType = "withdraw"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
)

// IsTransfer reports whether the type is one half of a transfer.
func (t TransactionType) IsTransfer() bool {
	return t == TransactionTypeTransferIn || t == TransactionTypeTransferOut
}

// Transaction is an immutable ledger record. Amount is always positive; direction comes from Type.
type Transaction struct {
	ID            int64           `db:"id" json:"id"`                           // Primary key, BIGSERIAL in DB
	UserID        int64           `db:"user_id" json:"user_id"`                 // Owner of the record
	Type          TransactionType `db:"type" json:"type"`                       // deposit, withdraw, transfer_in, transfer_out
	Amount        decimal.Decimal `db:"amount" json:"amount"`                   // NUMERIC(15, 2) in DB
	Comment       *string         `db:"comment" json:"comment"`                 // Optional, at most 255 chars
	RelatedUserID *int64          `db:"related_user_id" json:"related_user_id"` // Counterparty, transfers only
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// NewTransaction creates a new Transaction instance.
func NewTransaction(
	userID int64,
	txType TransactionType,
	amount decimal.Decimal,
	comment *string,
	relatedUserID *int64,
) *Transaction {
	return &Transaction{
		UserID:        userID,
		Type:          txType,
		Amount:        amount,
		Comment:       comment,
		RelatedUserID: relatedUserID,
		CreatedAt:     time.Now().UTC(),
	}
}
