// internal/repository/ledger_store.go
package repository

import (
	"context"
	"slices"
	"time"

	"balance-ledger/internal/domain"
)

// DefaultLockTimeout bounds how long a unit of work waits for its user locks.
const DefaultLockTimeout = 3 * time.Second

// Unit is the set of reads and writes available inside one atomic unit of work.
// Everything written through a Unit commits or rolls back together.
type Unit interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (created bool, err error)
	GetBalance(ctx context.Context, userID int64) (*domain.Balance, error)
	SaveBalance(ctx context.Context, balance *domain.Balance) error
	AppendTransaction(ctx context.Context, txn *domain.Transaction) error
}

// AtomicFunc is the body of a unit of work.
type AtomicFunc func(ctx context.Context, unit Unit) error

// LedgerStore owns balances and the append-only transaction log.
type LedgerStore interface {
	// GetBalance reads the committed balance of a user; util.ErrNotFound when there is no row.
	GetBalance(ctx context.Context, userID int64) (*domain.Balance, error)
	// GetTransactionsByUserID reads committed history, newest first.
	GetTransactionsByUserID(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, int64, error)
	// RunAtomic runs fn holding exclusive locks on userIDs, acquired in ascending order.
	// An error from fn rolls back every write and is returned unchanged.
	RunAtomic(ctx context.Context, userIDs []int64, fn AtomicFunc) error
}

// LockOrder returns the distinct ids in ascending order, the only order locks may be taken in.
func LockOrder(userIDs []int64) []int64 {
	ids := slices.Clone(userIDs)
	slices.Sort(ids)
	return slices.Compact(ids)
}
