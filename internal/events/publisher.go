// internal/events/publisher.go
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"balance-ledger/internal/domain"
)

// BalanceChanged is emitted once per committed transaction record.
type BalanceChanged struct {
	EventID       string                 `json:"event_id"`
	TransactionID int64                  `json:"transaction_id"`
	UserID        int64                  `json:"user_id"`
	Type          domain.TransactionType `json:"type"`
	Amount        string                 `json:"amount"`
	Balance       string                 `json:"balance"`
	RelatedUserID *int64                 `json:"related_user_id,omitempty"`
	Comment       *string                `json:"comment,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// NewBalanceChanged describes txn together with the balance it left behind.
func NewBalanceChanged(txn *domain.Transaction, balance *domain.Balance) BalanceChanged {
	return BalanceChanged{
		EventID:       uuid.NewString(),
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		Type:          txn.Type,
		Amount:        domain.FormatAmount(txn.Amount),
		Balance:       domain.FormatAmount(balance.Amount),
		RelatedUserID: txn.RelatedUserID,
		Comment:       txn.Comment,
		OccurredAt:    txn.CreatedAt,
	}
}

// Publisher delivers committed ledger events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, events ...BalanceChanged) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...BalanceChanged) error { return nil }

func (NopPublisher) Close() error { return nil }
